package browser

// The scripts locate the form the same way htmldoc does: #survey-form, then
// the first form carrying data-api.
const findForm = `const form = document.getElementById('survey-form') || document.querySelector('form[data-api]');`

const controlSelector = `input[type=text], input[type=range], input[type=radio], input[type=checkbox], input:not([type]), textarea`

const jsHasForm = `() => { ` + findForm + ` return !!form; }`

const jsAttributes = `() => {
	` + findForm + `
	if (!form) return null;
	let token = typeof window.__CSRF__ === 'string' ? window.__CSRF__ : '';
	if (!token) {
		const meta = document.querySelector('meta[name="csrf-token"]');
		if (meta) token = meta.getAttribute('content') || '';
	}
	if (!token) {
		const hidden = form.querySelector('input[name="csrf_token"]');
		if (hidden) token = hidden.value || '';
	}
	return {
		endpoint: form.dataset.api || '',
		done_url: form.dataset.done || '',
		csrf_token: token,
	};
}`

const jsBlocks = `() => {
	` + findForm + `
	if (!form) return [];
	const kindOf = (el) => el.tagName === 'TEXTAREA' ? 'textarea' : (el.getAttribute('type') || 'text').toLowerCase();
	return Array.from(form.querySelectorAll('.q-block')).map((block) => {
		const title = block.querySelector('.q-title');
		const controls = Array.from(block.querySelectorAll('` + controlSelector + `')).map((el) => {
			const label = el.closest('label');
			return {
				kind: kindOf(el),
				name: el.name || '',
				value: el.value || '',
				checked: !!el.checked,
				required: !!el.required,
				label: label ? label.textContent.trim() : '',
				min: el.getAttribute('min') || '',
				max: el.getAttribute('max') || '',
				step: el.getAttribute('step') || '',
			};
		});
		return {
			question_id: block.dataset.qid || '',
			prompt: title ? title.textContent.trim() : '',
			controls: controls,
		};
	});
}`

const jsValidate = `() => {
	` + findForm + `
	if (!form) return [];
	const issues = [];
	for (const block of form.querySelectorAll('.q-block')) {
		for (const el of block.querySelectorAll('` + controlSelector + `')) {
			if (!el.checkValidity()) {
				issues.push({question_id: block.dataset.qid || '', message: el.validationMessage || ''});
				break;
			}
		}
	}
	if (issues.length) form.reportValidity();
	return issues;
}`

const jsMirrorRange = `(qid, value) => {
	` + findForm + `
	if (!form) return false;
	const block = form.querySelector('.q-block[data-qid="' + CSS.escape(qid) + '"]');
	if (!block) return false;
	const label = block.querySelector('.scale-value');
	if (label) label.textContent = value;
	return true;
}`

const jsSetValue = `(qid, value) => {
	` + findForm + `
	if (!form) return 'form not found';
	const block = form.querySelector('.q-block[data-qid="' + CSS.escape(qid) + '"]');
	if (!block) return 'unknown question';
	const el = block.querySelector('input[type=text], input[type=range], input:not([type]), textarea');
	if (!el) return 'no text control';
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	return '';
}`

const jsSetChecked = `(qid, value, checked) => {
	` + findForm + `
	if (!form) return 'form not found';
	const block = form.querySelector('.q-block[data-qid="' + CSS.escape(qid) + '"]');
	if (!block) return 'unknown question';
	const el = Array.from(block.querySelectorAll('input[type=radio], input[type=checkbox]')).find((e) => e.value === value);
	if (!el) return 'no such option';
	el.checked = checked;
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return '';
}`

// jsInstall forwards control changes and button clicks to the exposed
// binding. It is idempotent per page.
const jsInstall = `(binding) => {
	` + findForm + `
	if (!form || form.__formsync) return !!form;
	form.__formsync = true;
	const send = (msg) => { try { window[binding](msg); } catch (e) {} };
	const onChange = (ev) => {
		const el = ev.target;
		if (!el || !el.matches('` + controlSelector + `')) return;
		const block = el.closest('.q-block');
		if (!block || !block.dataset.qid) return;
		const kind = el.tagName === 'TEXTAREA' ? 'textarea' : (el.getAttribute('type') || 'text').toLowerCase();
		if ((kind === 'radio' || kind === 'checkbox') && ev.type === 'input') return;
		send({question_id: block.dataset.qid, kind: kind, value: el.value || ''});
	};
	form.addEventListener('input', onChange);
	form.addEventListener('change', (ev) => {
		const el = ev.target;
		if (el && (el.type === 'radio' || el.type === 'checkbox')) onChange(ev);
	});
	const save = document.getElementById('save-btn');
	if (save) save.addEventListener('click', (ev) => { ev.preventDefault(); send({action: 'save'}); });
	form.addEventListener('submit', (ev) => { ev.preventDefault(); send({action: 'submit'}); });
	return true;
}`

const jsNavigate = `(url) => { window.location.href = url; return true; }`

const jsShowThanks = `(title, body) => {
	const overlay = document.createElement('div');
	overlay.className = 'formsync-thanks';
	overlay.style.cssText = 'position:fixed;inset:0;display:flex;align-items:center;justify-content:center;background:rgba(0,0,0,.5);z-index:9999';
	const box = document.createElement('div');
	box.style.cssText = 'background:#fff;padding:2rem;border-radius:8px;text-align:center';
	const h = document.createElement('h2');
	h.textContent = title;
	const p = document.createElement('p');
	p.textContent = body;
	box.appendChild(h);
	box.appendChild(p);
	overlay.appendChild(box);
	document.body.appendChild(overlay);
	return true;
}`

const jsAlert = `(msg) => { window.alert(msg); return true; }`

const jsFlashSaved = `(label) => {
	const btn = document.getElementById('save-btn');
	if (!btn) return false;
	const original = btn.dataset.label || btn.textContent;
	btn.dataset.label = original;
	btn.textContent = label;
	setTimeout(() => { btn.textContent = original; }, 1200);
	return true;
}`

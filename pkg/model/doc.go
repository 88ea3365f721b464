// Package model defines the values exchanged between a form snapshot, the
// sync controller and the answers endpoint. Question blocks and controls are
// read-only views over live form state; answers and submission payloads are
// built per send and discarded once the request resolves. JSON tags follow
// the answers endpoint wire format (schema version 2): answers travel as an
// ordered array of `{question_id, response_text, selected_option_ids}`
// objects next to the `csrf_token`.
package model

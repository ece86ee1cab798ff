// Package google implements chat.Client on the Gemini API.
//
// System messages become the request's system instruction. Consecutive tool
// messages are sent as one user turn of function responses, matched to
// their calls by name and id.
//
// Deep-think requests enable thought output. Thought parts are streamed as
// thinking chunks, and the thought signature is kept base64-encoded in
// Response.ThinkingSignature so it can be replayed on the next request.
package google

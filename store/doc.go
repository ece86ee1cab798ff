// Package store holds conversation history and persisted chat sessions.
//
// [MessageStore] is the in-memory history an agent works on. It only grows by
// appending and is corrected by [MessageStore.TruncateFrom] or swapped
// wholesale with [MessageStore.Replace].
//
// [SessionStore] persists sessions, their messages and tool-call records as
// JSON documents through an [Adapter]. [MemoryAdapter] is the in-memory
// implementation:
//
//	sessions := store.NewSessionStore(nil)
//	sess, _ := sessions.Create(ctx, "")
//	sessions.AddMessage(ctx, sess.ID, store.Message{Role: ai.RoleUser, Content: "Hello"})
package store

package event

// BlockType identifies the kind of content block.
type BlockType string

const (
	BlockThinking   BlockType = "thinking"
	BlockContent    BlockType = "content"
	BlockToolCall   BlockType = "tool_call"
	BlockToolResult BlockType = "tool_result"
)

// Block is one ordered piece of a persisted assistant message.
type Block struct {
	Type       BlockType      `json:"type"`
	Content    string         `json:"content,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     string         `json:"result,omitempty"`
	Success    *bool          `json:"success,omitempty"`
	Order      int            `json:"order"`
}

// Recorder rebuilds the assistant message of a run from its events.
//
// Content fragments are buffered and flushed into a content block whenever a
// tool call starts and when the run ends. All thinking is gathered into a
// single block that is placed first.
type Recorder struct {
	content  []byte
	thinking []byte
	pending  []byte
	blocks   []Block

	final    *Event
	finished bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record consumes one event.
func (r *Recorder) Record(e Event) {
	switch e.Type {
	case Thinking:
		r.thinking = append(r.thinking, e.Content...)
	case Content:
		r.content = append(r.content, e.Content...)
		r.pending = append(r.pending, e.Content...)
	case ToolCall:
		r.flush()
		r.add(Block{
			Type:       BlockToolCall,
			ToolName:   e.ToolName,
			ToolCallID: e.ToolCallID,
			Arguments:  e.Arguments,
		})
	case ToolResult:
		success := e.Success
		r.add(Block{
			Type:       BlockToolResult,
			ToolName:   e.ToolName,
			ToolCallID: e.ToolCallID,
			Result:     e.Result,
			Success:    &success,
		})
	case Done, Error:
		r.flush()
		final := e
		r.final = &final
		r.finished = true
	}
}

func (r *Recorder) flush() {
	if len(r.pending) == 0 {
		return
	}
	r.add(Block{Type: BlockContent, Content: string(r.pending)})
	r.pending = r.pending[:0]
}

func (r *Recorder) add(b Block) {
	b.Order = len(r.blocks)
	r.blocks = append(r.blocks, b)
}

// Content returns all content recorded so far.
func (r *Recorder) Content() string {
	return string(r.content)
}

// Thinking returns all reasoning recorded so far.
func (r *Recorder) Thinking() string {
	return string(r.thinking)
}

// Blocks returns the ordered blocks. Thinking, when present, is block 0 and
// the remaining blocks are renumbered after it. Unflushed content is
// included as a trailing block.
func (r *Recorder) Blocks() []Block {
	blocks := make([]Block, 0, len(r.blocks)+2)
	if len(r.thinking) > 0 {
		blocks = append(blocks, Block{Type: BlockThinking, Content: string(r.thinking)})
	}
	blocks = append(blocks, r.blocks...)
	if len(r.pending) > 0 {
		blocks = append(blocks, Block{Type: BlockContent, Content: string(r.pending)})
	}
	for i := range blocks {
		blocks[i].Order = i
	}
	return blocks
}

// Finished reports whether a terminal event has been recorded.
func (r *Recorder) Finished() bool {
	return r.finished
}

// Final returns the terminal event, or nil if the run has not ended.
func (r *Recorder) Final() *Event {
	return r.final
}

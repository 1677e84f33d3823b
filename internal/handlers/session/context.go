package session

import (
	"sync"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	"github.com/google/uuid"
)

type Stage string

const (
	StageIdle            Stage = ""
	StageSearchResults   Stage = "search_results"
	StageSearchConfirm   Stage = "search_confirm"
	StageDeletePick      Stage = "delete_pick"
	StageDeleteConfirm   Stage = "delete_confirm"
	StageMovePick        Stage = "move_pick"
	StageMoveTarget      Stage = "move_target"
	StageSubtitlePick    Stage = "subtitle_pick"
	StageSubtitleLang    Stage = "subtitle_lang"
	StageSubtitleResults Stage = "subtitle_results"
)

// Entry is one prompt message of the current flow.
type Entry struct {
	Stage     Stage
	MessageID int
}

// Deleter retracts chat messages.
type Deleter interface {
	DeleteMessage(messageID int) error
}

// Context is the single interaction context of the operator. The stack only grows during a
// flow and is reset as a whole by Clear or Cancel.
type Context struct {
	mu sync.Mutex

	flowID       string
	flowStage    Stage
	stack        []Entry
	selectedFile string
	magnets      map[string]string
	data         map[string]any
}

func NewContext() *Context {
	return &Context{}
}

// Begin starts a flow and returns its id, which buttons carry to detect stale presses.
func (c *Context) Begin(stage Stage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flowID != "" {
		return "", utils.WrapError(utils.ErrFlowActive, "a flow is already active", map[string]any{
			"stage": string(c.currentStageLocked()),
		})
	}
	c.flowID = uuid.NewString()
	c.flowStage = stage
	logutils.Log.WithFields(map[string]any{"flow_id": c.flowID, "stage": stage}).Debug("Flow started")
	return c.flowID, nil
}

// Push records a prompt so it can be retracted later.
func (c *Context) Push(stage Stage, messageID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = append(c.stack, Entry{Stage: stage, MessageID: messageID})
}

func (c *Context) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flowID != ""
}

// Owns reports whether flowID is the running flow.
func (c *Context) Owns(flowID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return flowID != "" && c.flowID == flowID
}

func (c *Context) FlowID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flowID
}

// Stage is the stage of the latest prompt, or the one passed to Begin.
func (c *Context) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStageLocked()
}

func (c *Context) currentStageLocked() Stage {
	if len(c.stack) > 0 {
		return c.stack[len(c.stack)-1].Stage
	}
	return c.flowStage
}

// Last returns the most recent prompt of the flow.
func (c *Context) Last() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return Entry{}, false
	}
	return c.stack[len(c.stack)-1], true
}

func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

func (c *Context) SetSelectedFile(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedFile = name
}

func (c *Context) SelectedFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedFile
}

// SetMagnets replaces the token to magnet table of the current flow.
func (c *Context) SetMagnets(magnets map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.magnets = magnets
}

func (c *Context) Magnet(token string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	uri, ok := c.magnets[token]
	return uri, ok
}

// Set stores flow-scoped data such as search results.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key]
}

// Cancel retracts every recorded prompt and resets the context. Safe on an idle context.
func (c *Context) Cancel(d Deleter) int {
	entries := c.reset()
	for _, e := range entries {
		retract(d, e)
	}
	return len(entries)
}

// Clear retracts every prompt but the last one, which is the flow's final message, and resets the context.
func (c *Context) Clear(d Deleter) {
	entries := c.reset()
	if len(entries) == 0 {
		return
	}
	for _, e := range entries[:len(entries)-1] {
		retract(d, e)
	}
}

func (c *Context) reset() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.stack
	if c.flowID != "" {
		logutils.Log.WithField("flow_id", c.flowID).Debug("Flow ended")
	}
	c.flowID = ""
	c.flowStage = StageIdle
	c.stack = nil
	c.selectedFile = ""
	c.magnets = nil
	c.data = nil
	return entries
}

func retract(d Deleter, e Entry) {
	if err := d.DeleteMessage(e.MessageID); err != nil {
		logutils.Log.WithError(err).WithField("message_id", e.MessageID).Warn("Failed to retract prompt")
	}
}

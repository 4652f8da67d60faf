package store

import (
	"fmt"

	"github.com/roach88/inkwell/internal/render"
)

// TaskKind identifies a render task message.
type TaskKind uint8

const (
	// TaskReplaceImages replaces a key's cached images.
	TaskReplaceImages TaskKind = iota + 1
	// TaskAppendImages adds images to a key's cache.
	TaskAppendImages
	// TaskRenderFailed reports a failed job so the key can be retried.
	TaskRenderFailed
	// TaskQuit asks the consumer loop to stop once drained.
	TaskQuit
)

func (k TaskKind) String() string {
	switch k {
	case TaskReplaceImages:
		return "replace_images"
	case TaskAppendImages:
		return "append_images"
	case TaskRenderFailed:
		return "render_failed"
	case TaskQuit:
		return "quit"
	default:
		return fmt.Sprintf("task(%d)", uint8(k))
	}
}

// Task is a message from a render worker to the owner goroutine.
type Task struct {
	Kind   TaskKind
	Key    Key
	Gen    uint64
	Images render.GeneratedImages
	Err    error
}

// QuitTask returns the stop message.
func QuitTask() Task { return Task{Kind: TaskQuit} }

// TaskSender delivers tasks to the owner. *queue.Queue[Task] implements it.
// Enqueue must not block.
type TaskSender interface {
	Enqueue(Task) bool
}

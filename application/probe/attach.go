package probe

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"research_probe/domain/entities"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// dropScript replays a file drop on the element it is evaluated against.
// The argument carries the file as base64 so no filesystem access is needed in the page.
const dropScript = `async (target, arg) => {
	const sleep = (ms) => new Promise((resolve) => setTimeout(resolve, ms));
	try {
		const raw = atob(arg.data);
		const bytes = new Uint8Array(raw.length);
		for (let i = 0; i < raw.length; i++) {
			bytes[i] = raw.charCodeAt(i);
		}
		const file = new File([bytes], arg.name, { type: arg.mime });
		const transfer = new DataTransfer();
		transfer.items.add(file);

		for (const type of ["dragenter", "dragover", "drop"]) {
			const event = new DragEvent(type, {
				bubbles: true,
				cancelable: true,
				dataTransfer: transfer,
			});
			target.dispatchEvent(event);
			await sleep(arg.pauseMs);
		}
		return { ok: true };
	} catch (e) {
		return { ok: false, error: String(e) };
	}
}`

// AttachFileStep drops a local file onto the chat through synthetic drag events
type AttachFileStep struct {
	Path string
}

func (AttachFileStep) Name() string { return "attach_file" }

func (a AttachFileStep) Title() string {
	return fmt.Sprintf("Attaching %s...", filepath.Base(a.Path))
}

func (a AttachFileStep) Run(ctx context.Context, s *Session) entities.StepOutcome {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		s.Sink.Error(fmt.Sprintf("Could not read attachment: %v", err))
		return entities.Degraded(entities.ErrAttachmentFailure, fmt.Sprintf("attachment unreadable: %v", err))
	}

	mime := mimetype.Detect(data)
	name := filepath.Base(a.Path)
	s.Logger.WithFields(logrus.Fields{
		"file": name,
		"mime": mime.String(),
		"size": len(data),
	}).Debug("Attachment loaded")

	target, match, found := s.Resolver.Resolve(ctx, s.Page, s.Config.Selectors.DropTarget, s.Config.Timing.VisibilityTimeout.Duration)
	if !found {
		s.Sink.Error("Could not find a drop target for the attachment")
		return entities.Degraded(entities.ErrAttachmentFailure, "no drop target visible")
	}

	arg := map[string]any{
		"name":    name,
		"mime":    mime.String(),
		"data":    base64.StdEncoding.EncodeToString(data),
		"pauseMs": s.Config.Timing.DropPause.Milliseconds(),
	}
	result, err := target.Evaluate(ctx, dropScript, arg)
	if err != nil {
		s.Sink.Error(fmt.Sprintf("Failed to drop attachment: %v", err))
		return entities.Degraded(entities.ErrAttachmentFailure, err.Error())
	}
	if ok, reason := dropResult(result); !ok {
		s.Sink.Error(fmt.Sprintf("Attachment drop rejected: %s", reason))
		return entities.Degraded(entities.ErrAttachmentFailure, reason)
	}

	if err := s.Jitter.Delay(ctx, 1000*time.Millisecond, 1500*time.Millisecond); err != nil {
		return entities.Fatal(entities.ErrUnexpectedSession, err.Error())
	}

	s.Sink.Info(fmt.Sprintf("   Dropped %s (%s) on %s", name, mime.String(), match.Selector))
	s.Checkpoint(ctx, "step3_file_attached", false)
	return entities.Success()
}

// dropResult - interprets the {ok, error} object returned by dropScript
func dropResult(result any) (bool, string) {
	obj, isMap := result.(map[string]any)
	if !isMap {
		return false, fmt.Sprintf("unexpected script result %v", result)
	}
	if ok, _ := obj["ok"].(bool); ok {
		return true, ""
	}
	if msg, _ := obj["error"].(string); msg != "" {
		return false, msg
	}
	return false, "drop script reported failure"
}

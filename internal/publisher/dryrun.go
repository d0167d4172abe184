package publisher

import (
	"context"
	"strconv"
	"sync/atomic"

	logx "tweetbot/pkg/logx"
)

// DryRun logs outgoing texts instead of posting them.
type DryRun struct {
	log logx.Logger
	n   atomic.Uint64
}

func NewDryRun(log logx.Logger) *DryRun {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &DryRun{log: log}
}

func (d *DryRun) Publish(ctx context.Context, text string) (PostID, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}
	id := PostID("dryrun-" + strconv.FormatUint(d.n.Add(1), 10))
	d.log.Info("dry run: not posting", logx.String("post_id", string(id)), logx.String("text", text), logx.Int("bytes", len(text)))
	return id, nil
}

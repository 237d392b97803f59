package publisher

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DryRun is a Platform that logs messages instead of posting them
type DryRun struct {
	channel string
	logger  logrus.FieldLogger
	seq     atomic.Int64
}

// NewDryRun creates a dry-run platform for channel
func NewDryRun(channel string, logger logrus.FieldLogger) *DryRun {
	return &DryRun{channel: channel, logger: logger.WithField("component", "dry-run")}
}

func (d *DryRun) PostText(ctx context.Context, message string) (string, error) {
	d.logger.WithField("channel", d.channel).Infof("would post (%d chars):\n%s", len([]rune(message)), message)
	return d.nextID(), nil
}

func (d *DryRun) PostMedia(ctx context.Context, mediaPath, message string) (string, error) {
	d.logger.WithFields(logrus.Fields{"channel": d.channel, "media": mediaPath}).
		Infof("would post with media (%d chars):\n%s", len([]rune(message)), message)
	return d.nextID(), nil
}

func (d *DryRun) nextID() string {
	return fmt.Sprintf("dry-run-%s-%d", d.channel, d.seq.Add(1))
}

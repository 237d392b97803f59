// Package selector decides what each posting cycle publishes. It is the only
// place in the cycle that draws random numbers.
package selector

import (
	"errors"
	"math/rand"
	"time"

	"github.com/ibeckermayer/postcycle/internal/types"
)

// ErrNoTopics is returned when the topic catalog is empty
var ErrNoTopics = errors.New("topic catalog is empty")

// RandSource yields uniform integers in [0, n). *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

// Selector builds cycle plans
type Selector struct {
	rnd RandSource
}

// New creates a selector drawing from rnd
func New(rnd RandSource) *Selector {
	return &Selector{rnd: rnd}
}

// NewSeeded creates a selector backed by math/rand. A zero seed uses the clock.
func NewSeeded(seed int64) *Selector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return New(rand.New(rand.NewSource(seed)))
}

// Select draws a topic per channel, then decides whether this cycle carries
// an image. When it does, the image's topic replaces every channel's topic so
// text and picture stay on the same subject.
func (s *Selector) Select(channels []types.ChannelProfile, topics []types.Topic, media []types.MediaAsset) (types.CyclePlan, error) {
	if len(topics) == 0 {
		return types.CyclePlan{}, ErrNoTopics
	}

	plan := types.CyclePlan{
		TopicsByChannel: make(map[string]types.Topic, len(channels)),
	}
	for _, ch := range channels {
		plan.TopicsByChannel[ch.ID] = topics[s.rnd.Intn(len(topics))]
	}

	if len(media) == 0 {
		return plan, nil
	}

	plan.UseMedia = s.rnd.Intn(2) == 1
	if !plan.UseMedia {
		return plan, nil
	}

	asset := media[s.rnd.Intn(len(media))]
	plan.MediaAsset = &asset
	for id := range plan.TopicsByChannel {
		plan.TopicsByChannel[id] = asset.Topic
	}

	return plan, nil
}

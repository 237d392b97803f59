package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"auth tagged", Tag(ErrAuth, errors.New("token expired")), KindAuth},
		{"parse wrapped", fmt.Errorf("decode: %w", Tag(ErrParse, errors.New("bad json"))), KindParse},
		{"budget", ErrBudgetExceeded, KindBudgetExceeded},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindNetwork},
		{"untagged", errors.New("boom"), KindInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestTagKeepsExistingSentinel(t *testing.T) {
	err := Tag(ErrNetwork, errors.New("dial tcp"))
	assert.Same(t, err, Tag(ErrNetwork, err))
	assert.Nil(t, Tag(ErrNetwork, nil))
}

func TestCycleReportCounts(t *testing.T) {
	r := CycleReport{Outcomes: []PostOutcome{
		{Channel: "facebook", Success: true},
		{Channel: "twitter", Error: KindAuth},
	}}
	assert.Equal(t, 1, r.Succeeded())
	assert.Equal(t, 1, r.Failed())
}

package notification

import (
	"time"

	"github.com/autobrr/dedup/pkg/grouping"
	"github.com/autobrr/dedup/pkg/hardlink"
)

type Action int

const (
	ActionDuplicates Action = iota + 1
	ActionLinkFailure
)

type Sender interface {
	CanSend() bool
	Send(title string, description string, runTime time.Duration, fields []Field, dryRun bool) error
	BuildField(action Action, options BuildOptions) Field
	Name() string
}

type Field struct {
	Name  string
	Value string
}

type BuildOptions struct {
	Group grouping.DuplicateGroup

	Failure hardlink.Failure
}

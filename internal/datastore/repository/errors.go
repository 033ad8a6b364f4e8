package repository

import "github.com/netwatch-oss/triggerkit/internal/errors"

var (
	ErrTriggerNotFound = errors.NewStd("trigger not found")
	ErrHostNotFound    = errors.NewStd("host not found")
)

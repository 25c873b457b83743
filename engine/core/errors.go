package core

import (
	"errors"
)

var (
	ErrGraphCycle       = errors.New("node graph contains a cycle")
	ErrRebuildAborted   = errors.New("rebuild aborted")
	ErrStoreNotLinked   = errors.New("store is not in the linked state")
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")
)

package pointcloud

import "github.com/pkg/errors"

// ErrInsufficientPairs is returned when a round of matching and rejection
// leaves fewer than Config.MinPairs correspondences to align against.
var ErrInsufficientPairs = errors.New("insufficient correspondence pairs survived rejection")

// ErrNoOverlap is returned when an iteration's matching finds no
// correspondence in either direction, or when the importance reweighter's
// weight sum is zero for either set, meaning the two sets do not overlap
// under the current transform.
var ErrNoOverlap = errors.New("point sets do not overlap under the current transform")

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FWVersion is a (major, minor, patch) triple of unsigned bytes. Its textual
// form is decimal "M.m.p"; total order is lexicographic on the triple
// (spec §3).
type FWVersion struct {
	Major, Minor, Patch uint8
}

func (v FWVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 comparing v to other lexicographically.
func (v FWVersion) Compare(other FWVersion) int {
	if v.Major != other.Major {
		return cmpUint8(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmpUint8(v.Minor, other.Minor)
	}
	return cmpUint8(v.Patch, other.Patch)
}

// Less reports whether v sorts strictly before other.
func (v FWVersion) Less(other FWVersion) bool { return v.Compare(other) < 0 }

// ParseFWVersion parses the decimal "M.m.p" form.
func ParseFWVersion(s string) (FWVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return FWVersion{}, fmt.Errorf("parse fw version %q: expected 3 dot-separated components", s)
	}
	nums := make([]uint8, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return FWVersion{}, fmt.Errorf("parse fw version %q: component %d: %w", s, i, err)
		}
		nums[i] = uint8(n)
	}
	return FWVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// HWVersion is a (vid, pid, rev) triple of unsigned bytes. Its textual form is
// hex "vv:pp:rr"; it is used only for equality and hashing (spec §3).
type HWVersion struct {
	VID, PID, Rev uint8
}

func (v HWVersion) String() string {
	return fmt.Sprintf("%02x:%02x:%02x", v.VID, v.PID, v.Rev)
}

// ParseHWVersion parses the hex "vv:pp:rr" form.
func ParseHWVersion(s string) (HWVersion, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return HWVersion{}, fmt.Errorf("parse hw version %q: expected 3 colon-separated components", s)
	}
	nums := make([]uint8, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return HWVersion{}, fmt.Errorf("parse hw version %q: component %d: %w", s, i, err)
		}
		nums[i] = uint8(n)
	}
	return HWVersion{VID: nums[0], PID: nums[1], Rev: nums[2]}, nil
}

func cmpUint8(a, b uint8) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

package booking

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy decides whether bookings of a room are confirmed immediately.
// MaxDurationHours caps auto approval; zero means no cap.
type Policy struct {
	AutoApprove      bool    `yaml:"auto_approve"`
	MaxDurationHours float64 `yaml:"max_duration_hours"`
}

// AutoApproves reports whether a booking of length d is confirmed without a
// delegate.
func (p Policy) AutoApproves(d time.Duration) bool {
	if !p.AutoApprove {
		return false
	}
	if p.MaxDurationHours > 0 && d.Hours() > p.MaxDurationHours {
		return false
	}
	return true
}

// Policies maps room display names to their policy.
type Policies map[string]Policy

// For returns the policy of the named room, matched case-insensitively.
// Unknown rooms require manual approval.
func (ps Policies) For(displayName string) Policy {
	name := strings.TrimSpace(displayName)
	if p, ok := ps[name]; ok {
		return p
	}
	for k, p := range ps {
		if strings.EqualFold(k, name) {
			return p
		}
	}
	return Policy{}
}

// DefaultPolicies are used when no policy file is configured.
func DefaultPolicies() Policies {
	return Policies{
		"Businessruimte": {AutoApprove: false},
		"Commissiekamer": {AutoApprove: false},
		"Kantine":        {AutoApprove: true, MaxDurationHours: 4},
	}
}

type policyFile struct {
	Rooms Policies `yaml:"rooms"`
}

// LoadPolicies reads a YAML document of the form
//
//	rooms:
//	  Kantine:
//	    auto_approve: true
//	    max_duration_hours: 4
func LoadPolicies(path string) (Policies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read room policies: %w", err)
	}
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse room policies: %w", err)
	}
	for name, p := range f.Rooms {
		if p.MaxDurationHours < 0 {
			return nil, fmt.Errorf("room policies: %s: max_duration_hours must not be negative", name)
		}
	}
	if f.Rooms == nil {
		f.Rooms = Policies{}
	}
	return f.Rooms, nil
}

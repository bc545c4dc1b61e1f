// Package quota tracks daily usage counters keyed by user, provider, and
// modality, and decides admission for incoming requests. Counters roll over
// lazily per record at the UTC day boundary; there is no background sweep.
package quota

import (
	"sync"
	"time"

	"github.com/diyorbek/relaybot/internal/ai"
)

// Modality is the kind of request being counted.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityVoice Modality = "voice"
)

// Modalities lists all counted modalities in a fixed order.
var Modalities = []Modality{ModalityText, ModalityImage, ModalityVoice}

// Reason explains why admission was denied.
type Reason string

const (
	ReasonTotalLimit Reason = "total-limit"
	ReasonImageLimit Reason = "image-limit"
	ReasonVoiceLimit Reason = "voice-limit"
)

// Limits are the per-day caps, applied independently per (user, provider)
// pair. Text requests count only against Total.
type Limits struct {
	Total int
	Image int
	Voice int
}

// Decision is the outcome of an admission check. A denial is normal control
// flow, not an error.
type Decision struct {
	Allowed bool
	Reason  Reason
}

type key struct {
	userID   int64
	provider ai.Provider
	modality Modality
}

// A counter record is valid only for the day stored in it; any access that
// observes a stale day resets the count first.
type record struct {
	count int
	day   string
}

// Tracker maintains the usage counters. Safe for concurrent use; all state
// is in-memory and lives for the process lifetime only.
type Tracker struct {
	mu      sync.Mutex
	limits  Limits
	now     func() time.Time
	records map[key]*record
}

// NewTracker creates a tracker enforcing the given limits.
func NewTracker(limits Limits) *Tracker {
	return &Tracker{
		limits:  limits,
		now:     time.Now,
		records: make(map[key]*record),
	}
}

// Limits returns the configured limits.
func (t *Tracker) Limits() Limits {
	return t.limits
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(time.DateOnly)
}

// rolled returns the record for k, creating it if missing and resetting it
// if its stored day is stale. Caller must hold t.mu.
func (t *Tracker) rolled(k key) *record {
	day := t.today()
	r, ok := t.records[k]
	if !ok {
		r = &record{day: day}
		t.records[k] = r
		return r
	}
	if r.day != day {
		r.count = 0
		r.day = day
	}
	return r
}

// UsageTotal returns the summed usage across all modalities for the pair,
// after ensuring rollover on each record.
func (t *Tracker) UsageTotal(userID int64, provider ai.Provider) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usageTotalLocked(userID, provider)
}

func (t *Tracker) usageTotalLocked(userID int64, provider ai.Provider) int {
	total := 0
	for _, m := range Modalities {
		total += t.rolled(key{userID, provider, m}).count
	}
	return total
}

// UsageOf returns the usage for one modality, after ensuring rollover.
func (t *Tracker) UsageOf(userID int64, provider ai.Provider, modality Modality) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolled(key{userID, provider, modality}).count
}

// Admit decides whether a request for the given modality may proceed. The
// total cap applies to every modality; image and voice additionally have
// their own caps.
func (t *Tracker) Admit(userID int64, provider ai.Provider, modality Modality) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.usageTotalLocked(userID, provider) >= t.limits.Total {
		return Decision{Reason: ReasonTotalLimit}
	}

	switch modality {
	case ModalityImage:
		if t.rolled(key{userID, provider, ModalityImage}).count >= t.limits.Image {
			return Decision{Reason: ReasonImageLimit}
		}
	case ModalityVoice:
		if t.rolled(key{userID, provider, ModalityVoice}).count >= t.limits.Voice {
			return Decision{Reason: ReasonVoiceLimit}
		}
	}

	return Decision{Allowed: true}
}

// Record increments the modality counter by one, after ensuring rollover.
// Called exactly once per successfully completed request.
func (t *Tracker) Record(userID int64, provider ai.Provider, modality Modality) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolled(key{userID, provider, modality}).count++
}

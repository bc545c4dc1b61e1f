// Package dispatch routes user requests to the selected completion provider.
// It owns the per-user provider selection and runs the admission, context
// assembly, provider call, and usage recording pipeline.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/diyorbek/relaybot/internal/ai"
	"github.com/diyorbek/relaybot/internal/conversation"
	"github.com/diyorbek/relaybot/internal/quota"
)

// DefaultProvider is assigned on a user's first contact.
const DefaultProvider = ai.ProviderOpenAI

// Result is the outcome of a dispatched request. A denial is a normal
// outcome, not an error; provider call failures surface as errors instead.
type Result struct {
	Reply string

	Denied        bool
	Reason        quota.Reason
	SuggestSwitch bool
	Alternate     ai.Provider

	Remaining int
	LowQuota  bool
}

// Status is a snapshot of a user's selection and usage for the selected
// provider, after rollover.
type Status struct {
	Provider       ai.Provider
	UsageTotal     int
	UsageImage     int
	UsageVoice     int
	RemainingTotal int
	RemainingImage int
	RemainingVoice int
}

// Dispatcher coordinates the quota tracker, conversation store, and the
// provider clients. Store handles are injected explicitly; the dispatcher
// depends on their contracts, not their internals.
type Dispatcher struct {
	log        *slog.Logger
	quota      *quota.Tracker
	conv       *conversation.Store
	completers map[ai.Provider]ai.Completer
	images     ai.ImageGenerator

	warnThreshold int

	mu         sync.Mutex
	selections map[int64]ai.Provider
}

// New creates a dispatcher over the given stores and provider clients.
func New(
	log *slog.Logger,
	tracker *quota.Tracker,
	conv *conversation.Store,
	completers map[ai.Provider]ai.Completer,
	images ai.ImageGenerator,
	warnThreshold int,
) *Dispatcher {
	return &Dispatcher{
		log:           log.With("component", "dispatcher"),
		quota:         tracker,
		conv:          conv,
		completers:    completers,
		images:        images,
		warnThreshold: warnThreshold,
		selections:    make(map[int64]ai.Provider),
	}
}

// Provider returns the user's currently selected provider, defaulting on
// first contact.
func (d *Dispatcher) Provider(userID int64) ai.Provider {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.selections[userID]
	if !ok {
		p = DefaultProvider
		d.selections[userID] = p
	}
	return p
}

// SelectProvider records the user's provider choice and clears their
// transcript. The two mutations are one logical operation: the providers do
// not share context format, so carrying the old transcript over is never
// valid.
func (d *Dispatcher) SelectProvider(userID int64, p ai.Provider) {
	d.mu.Lock()
	d.selections[userID] = p
	d.mu.Unlock()

	d.conv.Clear(userID)
	d.log.Info("Provider selected", "user_id", userID, "provider", p)
}

// ClearConversation empties the user's transcript without touching the
// selection or any counters.
func (d *Dispatcher) ClearConversation(userID int64) {
	d.conv.Clear(userID)
}

// Status reports the user's selection and usage for the selected provider.
func (d *Dispatcher) Status(userID int64) Status {
	p := d.Provider(userID)
	limits := d.quota.Limits()

	total := d.quota.UsageTotal(userID, p)
	image := d.quota.UsageOf(userID, p, quota.ModalityImage)
	voice := d.quota.UsageOf(userID, p, quota.ModalityVoice)

	return Status{
		Provider:       p,
		UsageTotal:     total,
		UsageImage:     image,
		UsageVoice:     voice,
		RemainingTotal: limits.Total - total,
		RemainingImage: limits.Image - image,
		RemainingVoice: limits.Voice - voice,
	}
}

func other(p ai.Provider) ai.Provider {
	if p == ai.ProviderOpenAI {
		return ai.ProviderGemini
	}
	return ai.ProviderOpenAI
}

// denial builds a denied Result, suggesting a provider switch when the
// non-selected provider still has total quota left.
func (d *Dispatcher) denial(userID int64, p ai.Provider, reason quota.Reason) Result {
	res := Result{Denied: true, Reason: reason}

	alt := other(p)
	if d.quota.UsageTotal(userID, alt) < d.quota.Limits().Total {
		res.SuggestSwitch = true
		res.Alternate = alt
	}

	d.log.Info("Request denied by quota",
		"user_id", userID, "provider", p, "reason", reason, "suggest_switch", res.SuggestSwitch)
	return res
}

// finish records usage for the completed request and computes the remaining
// total quota and the low-quota flag.
func (d *Dispatcher) finish(userID int64, p ai.Provider, m quota.Modality, res *Result) {
	d.quota.Record(userID, p, m)
	res.Remaining = d.quota.Limits().Total - d.quota.UsageTotal(userID, p)
	res.LowQuota = res.Remaining <= d.warnThreshold
}

// Respond runs the completion pipeline for a prompt: admit, assemble
// context, append the user turn, call the selected provider, then append
// the assistant turn and record usage. On provider failure no quota is
// consumed and the just-appended user turn stays in the transcript.
func (d *Dispatcher) Respond(ctx context.Context, userID int64, modality quota.Modality, prompt string) (Result, error) {
	switch modality {
	case quota.ModalityText, quota.ModalityImage, quota.ModalityVoice:
	default:
		return Result{}, fmt.Errorf("unknown modality %q", modality)
	}

	p := d.Provider(userID)

	if dec := d.quota.Admit(userID, p, modality); !dec.Allowed {
		return d.denial(userID, p, dec.Reason), nil
	}

	history := d.conv.ContextFor(userID)
	d.conv.AppendUserTurn(userID, prompt)

	completer, ok := d.completers[p]
	if !ok {
		return Result{}, fmt.Errorf("no client for provider %q", p)
	}

	reply, err := completer.Complete(ctx, toMessages(history), prompt)
	if err != nil {
		return Result{}, err
	}

	d.conv.AppendAssistantTurn(userID, reply)

	res := Result{Reply: reply}
	d.finish(userID, p, modality, &res)
	return res, nil
}

// RespondImage runs the image generation pipeline: admit as image, call the
// image collaborator, record as image usage. Generated images are not
// conversational turns, so the transcript is untouched.
func (d *Dispatcher) RespondImage(ctx context.Context, userID int64, prompt string) (Result, error) {
	p := d.Provider(userID)

	if dec := d.quota.Admit(userID, p, quota.ModalityImage); !dec.Allowed {
		return d.denial(userID, p, dec.Reason), nil
	}

	url, err := d.images.GenerateImage(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	res := Result{Reply: url}
	d.finish(userID, p, quota.ModalityImage, &res)
	return res, nil
}

func toMessages(turns []conversation.Turn) []ai.Message {
	msgs := make([]ai.Message, len(turns))
	for i, t := range turns {
		msgs[i] = ai.Message{Role: string(t.Role), Content: t.Content}
	}
	return msgs
}

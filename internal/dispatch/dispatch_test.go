package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/diyorbek/relaybot/internal/ai"
	"github.com/diyorbek/relaybot/internal/conversation"
	"github.com/diyorbek/relaybot/internal/dispatch"
	"github.com/diyorbek/relaybot/internal/quota"
)

type fakeCompleter struct {
	reply string
	err   error

	calls       int
	lastHistory []ai.Message
	lastPrompt  string
}

func (f *fakeCompleter) Complete(_ context.Context, history []ai.Message, prompt string) (string, error) {
	f.calls++
	f.lastHistory = history
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeImageGenerator struct {
	url string
	err error
}

func (f *fakeImageGenerator) GenerateImage(context.Context, string) (string, error) {
	return f.url, f.err
}

type fixture struct {
	tracker    *quota.Tracker
	conv       *conversation.Store
	openai     *fakeCompleter
	gemini     *fakeCompleter
	images     *fakeImageGenerator
	dispatcher *dispatch.Dispatcher
}

func newFixture(t *testing.T, limits quota.Limits, warnThreshold int) *fixture {
	t.Helper()

	f := &fixture{
		tracker: quota.NewTracker(limits),
		conv:    conversation.NewStore(20),
		openai:  &fakeCompleter{reply: "openai reply"},
		gemini:  &fakeCompleter{reply: "gemini reply"},
		images:  &fakeImageGenerator{url: "https://img.example/out.png"},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.dispatcher = dispatch.New(log, f.tracker, f.conv, map[ai.Provider]ai.Completer{
		ai.ProviderOpenAI: f.openai,
		ai.ProviderGemini: f.gemini,
	}, f.images, warnThreshold)
	return f
}

func defaultLimits() quota.Limits {
	return quota.Limits{Total: 50, Image: 5, Voice: 5}
}

func TestDefaultProviderIsOpenAI(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	if got := f.dispatcher.Provider(1); got != ai.ProviderOpenAI {
		t.Errorf("Provider = %q, want %q", got, ai.ProviderOpenAI)
	}
}

func TestRespondSuccessAppendsTurnsAndRecordsUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	res, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "hello")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if res.Denied {
		t.Fatal("Respond denied unexpectedly")
	}
	if res.Reply != "openai reply" {
		t.Errorf("Reply = %q, want %q", res.Reply, "openai reply")
	}

	turns := f.conv.ContextFor(user)
	if len(turns) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(turns))
	}
	if turns[0].Role != conversation.RoleUser || turns[0].Content != "hello" {
		t.Errorf("first turn = %+v, want user 'hello'", turns[0])
	}
	if turns[1].Role != conversation.RoleAssistant || turns[1].Content != "openai reply" {
		t.Errorf("second turn = %+v, want assistant reply", turns[1])
	}

	if got := f.tracker.UsageOf(user, ai.ProviderOpenAI, quota.ModalityText); got != 1 {
		t.Errorf("UsageOf(text) = %d, want 1", got)
	}
	if res.Remaining != 49 {
		t.Errorf("Remaining = %d, want 49", res.Remaining)
	}
	if res.LowQuota {
		t.Error("LowQuota set with 49 requests remaining")
	}
}

func TestRespondPassesPriorContextNotCurrentPrompt(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	if _, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "first"); err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if _, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "second"); err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}

	if f.openai.lastPrompt != "second" {
		t.Errorf("last prompt = %q, want %q", f.openai.lastPrompt, "second")
	}
	// Context for the second call holds the first exchange only.
	if len(f.openai.lastHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(f.openai.lastHistory))
	}
	if f.openai.lastHistory[0].Content != "first" {
		t.Errorf("history[0] = %q, want %q", f.openai.lastHistory[0].Content, "first")
	}
}

func TestRespondFailureConsumesNoQuotaAndLeavesDanglingUserTurn(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	f.openai.err = &ai.ProviderError{Provider: ai.ProviderOpenAI, Err: errors.New("upstream down")}

	_, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "hello?")
	if err == nil {
		t.Fatal("Respond returned nil error on provider failure")
	}

	var provErr *ai.ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("error %v is not a ProviderError", err)
	}

	if got := f.tracker.UsageTotal(user, ai.ProviderOpenAI); got != 0 {
		t.Errorf("UsageTotal after failure = %d, want 0", got)
	}

	turns := f.conv.ContextFor(user)
	if len(turns) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(turns))
	}
	if turns[0].Role != conversation.RoleUser || turns[0].Content != "hello?" {
		t.Errorf("dangling turn = %+v, want unanswered user turn", turns[0])
	}
}

func TestRespondDenialSuggestsSwitchWhenOtherProviderHasQuota(t *testing.T) {
	t.Parallel()

	f := newFixture(t, quota.Limits{Total: 1, Image: 1, Voice: 1}, 0)
	const user = int64(1)

	f.tracker.Record(user, ai.ProviderOpenAI, quota.ModalityText)

	res, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "another")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if !res.Denied {
		t.Fatal("Respond not denied after total limit reached")
	}
	if res.Reason != quota.ReasonTotalLimit {
		t.Errorf("Reason = %q, want %q", res.Reason, quota.ReasonTotalLimit)
	}
	if !res.SuggestSwitch || res.Alternate != ai.ProviderGemini {
		t.Errorf("suggestion = (%v, %q), want switch to gemini", res.SuggestSwitch, res.Alternate)
	}

	// The denied request neither called the provider nor touched context.
	if f.openai.calls != 0 {
		t.Errorf("completer called %d times on denial, want 0", f.openai.calls)
	}
	if turns := f.conv.ContextFor(user); len(turns) != 0 {
		t.Errorf("transcript length = %d after denial, want 0", len(turns))
	}
}

func TestRespondDenialWithoutSuggestionWhenBothExhausted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, quota.Limits{Total: 1, Image: 1, Voice: 1}, 0)
	const user = int64(1)

	f.tracker.Record(user, ai.ProviderOpenAI, quota.ModalityText)
	f.tracker.Record(user, ai.ProviderGemini, quota.ModalityText)

	res, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "another")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if !res.Denied || res.SuggestSwitch {
		t.Errorf("result = %+v, want denial without switch suggestion", res)
	}
}

func TestRespondAfterSwitchUsesOtherProviderAndFreshQuota(t *testing.T) {
	t.Parallel()

	f := newFixture(t, quota.Limits{Total: 1, Image: 1, Voice: 1}, 0)
	const user = int64(1)

	f.tracker.Record(user, ai.ProviderOpenAI, quota.ModalityText)
	f.dispatcher.SelectProvider(user, ai.ProviderGemini)

	res, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "hi")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if res.Denied {
		t.Fatalf("Respond denied on fresh provider, reason %q", res.Reason)
	}
	if res.Reply != "gemini reply" {
		t.Errorf("Reply = %q, want gemini reply", res.Reply)
	}
	if f.openai.calls != 0 {
		t.Errorf("openai called %d times after switch, want 0", f.openai.calls)
	}
}

func TestSelectProviderClearsContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	if _, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "hello"); err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	f.dispatcher.SelectProvider(user, ai.ProviderGemini)

	if turns := f.conv.ContextFor(user); len(turns) != 0 {
		t.Errorf("transcript length after switch = %d, want 0", len(turns))
	}
	if got := f.dispatcher.Provider(user); got != ai.ProviderGemini {
		t.Errorf("Provider = %q, want gemini", got)
	}
}

func TestLowQuotaWarningAtThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t, quota.Limits{Total: 6, Image: 5, Voice: 5}, 5)
	const user = int64(1)

	res, err := f.dispatcher.Respond(context.Background(), user, quota.ModalityText, "hello")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if res.Remaining != 5 {
		t.Errorf("Remaining = %d, want 5", res.Remaining)
	}
	if !res.LowQuota {
		t.Error("LowQuota not set at the warning threshold")
	}
}

func TestRespondUnknownModality(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)

	if _, err := f.dispatcher.Respond(context.Background(), 1, quota.Modality("video"), "x"); err == nil {
		t.Error("Respond accepted unknown modality")
	}
}

func TestRespondImageRecordsImageUsageWithoutTranscript(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	res, err := f.dispatcher.RespondImage(context.Background(), user, "a red fox")
	if err != nil {
		t.Fatalf("RespondImage returned error: %v", err)
	}
	if res.Reply != "https://img.example/out.png" {
		t.Errorf("Reply = %q, want image URL", res.Reply)
	}

	if got := f.tracker.UsageOf(user, ai.ProviderOpenAI, quota.ModalityImage); got != 1 {
		t.Errorf("UsageOf(image) = %d, want 1", got)
	}
	if turns := f.conv.ContextFor(user); len(turns) != 0 {
		t.Errorf("transcript length = %d after image generation, want 0", len(turns))
	}
}

func TestRespondImageDeniedAtImageLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	for i := 0; i < 5; i++ {
		f.tracker.Record(user, ai.ProviderOpenAI, quota.ModalityImage)
	}

	res, err := f.dispatcher.RespondImage(context.Background(), user, "one more")
	if err != nil {
		t.Fatalf("RespondImage returned error: %v", err)
	}
	if !res.Denied || res.Reason != quota.ReasonImageLimit {
		t.Errorf("result = %+v, want image-limit denial", res)
	}
}

func TestRespondImageFailureConsumesNoQuota(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	f.images.err = &ai.ProviderError{Provider: ai.ProviderOpenAI, Err: errors.New("generation failed")}

	if _, err := f.dispatcher.RespondImage(context.Background(), user, "a fox"); err == nil {
		t.Fatal("RespondImage returned nil error on generator failure")
	}
	if got := f.tracker.UsageTotal(user, ai.ProviderOpenAI); got != 0 {
		t.Errorf("UsageTotal after failure = %d, want 0", got)
	}
}

func TestStatusReflectsUsageAndRemaining(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultLimits(), 5)
	const user = int64(1)

	f.tracker.Record(user, ai.ProviderOpenAI, quota.ModalityText)
	f.tracker.Record(user, ai.ProviderOpenAI, quota.ModalityImage)

	status := f.dispatcher.Status(user)
	if status.Provider != ai.ProviderOpenAI {
		t.Errorf("Provider = %q, want openai", status.Provider)
	}
	if status.UsageTotal != 2 || status.UsageImage != 1 || status.UsageVoice != 0 {
		t.Errorf("usage = (%d, %d, %d), want (2, 1, 0)",
			status.UsageTotal, status.UsageImage, status.UsageVoice)
	}
	if status.RemainingTotal != 48 || status.RemainingImage != 4 || status.RemainingVoice != 5 {
		t.Errorf("remaining = (%d, %d, %d), want (48, 4, 5)",
			status.RemainingTotal, status.RemainingImage, status.RemainingVoice)
	}
}

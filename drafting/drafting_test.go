package drafting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentTypeRegistry(t *testing.T) {
	assert.Equal(t, []string{
		"Rent Agreement",
		"Employment Contract",
		"Non-Disclosure Agreement",
		"Will",
		"Other",
	}, DocumentTypeNames())

	will, ok := LookupDocumentType("Will")
	require.True(t, ok)
	assert.True(t, will.RequiresNotarization)
	assert.Equal(t, CategoryPersonal, will.Category)

	rent, ok := LookupDocumentType("Rent Agreement")
	require.True(t, ok)
	assert.True(t, rent.RequiresRegistration)

	_, ok = LookupDocumentType("Lease")
	assert.False(t, ok)
}

func TestDefaultPromptBuilder(t *testing.T) {
	p := DefaultPromptBuilder{}.Build(validRequest())

	assert.NotEmpty(t, p.System)
	assert.Contains(t, p.User, "legally valid Rent Agreement")
	assert.Contains(t, p.User, "Document Type: Rent Agreement (PROPERTY)")
	assert.Contains(t, p.User, "requires registration")
	assert.Contains(t, p.User, "\nState: Maharashtra")

	req := validRequest()
	req.State = ""
	p = DefaultPromptBuilder{System: "custom"}.Build(req)
	assert.Equal(t, "custom", p.System)
	assert.NotContains(t, p.User, "State:")
}

func TestPromptBuilderFunc(t *testing.T) {
	b := PromptBuilderFunc(func(req DraftRequest) Prompt {
		return Prompt{System: "s", User: req.PartyA}
	})
	assert.Equal(t, Prompt{System: "s", User: "Asha Verma"}, b.Build(validRequest()))
}

func TestCacheKey(t *testing.T) {
	p := DefaultPromptBuilder{}.Build(validRequest())
	a := CacheKey(p, DefaultModels(), DefaultParams())
	b := CacheKey(p, DefaultModels(), DefaultParams())
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "lexdraft:draft:"))

	params := DefaultParams()
	params.Temperature = 0.2
	assert.NotEqual(t, a, CacheKey(p, DefaultModels(), params))
	assert.NotEqual(t, a, CacheKey(p, Models{Primary: "other"}, DefaultParams()))
}

func TestFallbackDocument(t *testing.T) {
	doc := FallbackDocument(validRequest())
	assert.True(t, strings.HasPrefix(doc, "# Rent Agreement\n"))
	assert.Contains(t, doc, "- **Party A**: Asha Verma")
	assert.Contains(t, doc, "- **Party B**: Rohan Gupta")
	assert.Contains(t, doc, "could not be fully generated due to technical issues")

	empty := FallbackDocument(DraftRequest{})
	assert.True(t, strings.HasPrefix(empty, "# Legal Agreement\n"))
	assert.Contains(t, empty, "- **Party A**: First Party")
	assert.Contains(t, empty, "- **Party B**: Second Party")

	assert.Equal(t, doc, FallbackDocument(validRequest()), "placeholder depends only on the request")
}

func TestTrackerTerminalStatesAreFinal(t *testing.T) {
	rec := &recorder{}
	tr := newTracker("req-1", ModeBlocking, []Observer{rec.observe})

	assert.Equal(t, StateIdle, tr.State())
	tr.transition(StateValidating, nil)
	tr.transition(StateFailed, nil)
	tr.transition(StateInvoking, nil)
	tr.transition(StateSucceeded, nil)

	assert.Equal(t, StateFailed, tr.State())
	assert.Equal(t, []State{StateValidating, StateFailed}, rec.states())
	for _, ev := range rec.events {
		assert.Equal(t, "req-1", ev.RequestID)
		assert.Equal(t, ModeBlocking, ev.Mode)
	}
}

func TestEventEmitter(t *testing.T) {
	em := NewEventEmitter(2)
	em.Observe(Event{State: StateValidating})
	em.Observe(Event{State: StateInvoking})
	em.Observe(Event{State: StateSucceeded}) // dropped, buffer full
	em.Close()
	em.Close()
	em.Observe(Event{State: StateFailed}) // dropped, closed

	var got []State
	for ev := range em.Events() {
		got = append(got, ev.State)
	}
	assert.Equal(t, []State{StateValidating, StateInvoking}, got)
}

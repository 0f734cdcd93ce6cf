package selector

import (
	"crowned-trader/interfaces"
	"errors"
	"slices"
	"testing"
)

func dtes(t *testing.T, c *interfaces.OptionsChain, p Policy) []int {
	t.Helper()
	seq, err := SelectExpirations(c, p)
	if err != nil {
		t.Fatalf("SelectExpirations: %v", err)
	}
	var out []int
	for g := range seq {
		out = append(out, g.DTE)
	}
	return out
}

func chainWithDTEs(days ...int) *interfaces.OptionsChain {
	groups := make([]*interfaces.ExpirationGroup, len(days))
	for i, d := range days {
		groups[i] = group(d)
	}
	return chain("100", groups...)
}

func TestSelectExpirations_SwingTiers(t *testing.T) {
	c := chainWithDTEs(5, 7, 10, 14, 20, 30, 45, 50)
	got := dtes(t, c, mustPolicy(interfaces.Swing))
	want := []int{20, 14, 10, 7, 30, 45}
	if !slices.Equal(got, want) {
		t.Errorf("swing order = %v, want %v", got, want)
	}
}

func TestSelectExpirations_SwingOverlapUsesFirstRange(t *testing.T) {
	// 14 sits in both [13,25] and [6,15]; it belongs to the first tier.
	c := chainWithDTEs(8, 14)
	got := dtes(t, c, mustPolicy(interfaces.Swing))
	if !slices.Equal(got, []int{14, 8}) {
		t.Errorf("swing order = %v, want [14 8]", got)
	}
}

func TestSelectExpirations_LEAPTarget(t *testing.T) {
	c := chainWithDTEs(300, 340, 370, 360, 400)
	got := dtes(t, c, mustPolicy(interfaces.LEAP))
	want := []int{360, 370, 340}
	if !slices.Equal(got, want) {
		t.Errorf("leap order = %v, want %v", got, want)
	}
}

func TestSelectExpirations_NoneInWindow(t *testing.T) {
	c := chainWithDTEs(1, 2, 100)
	for _, s := range []interfaces.Strategy{interfaces.Swing, interfaces.LEAP} {
		_, err := SelectExpirations(c, mustPolicy(s))
		if !errors.Is(err, ErrNoExpirationInWindow) {
			t.Errorf("%s: expected ErrNoExpirationInWindow; got %v", s, err)
		}
	}
}

func TestSelectExpirations_ScalpWidening(t *testing.T) {
	c := chainWithDTEs(30, 0, 9, 2)
	p := mustPolicy(interfaces.Scalp)

	got := dtes(t, c, p)
	if !slices.Equal(got, []int{0, 2, 9, 30}) {
		t.Errorf("scalp order = %v, want [0 2 9 30]", got)
	}

	// restartable
	if again := dtes(t, c, p); !slices.Equal(again, got) {
		t.Errorf("second pass = %v, want %v", again, got)
	}

	// stops pulling when the consumer stops
	seq, _ := SelectExpirations(c, p)
	pulled := 0
	for range seq {
		pulled++
		if pulled == 2 {
			break
		}
	}
	if pulled != 2 {
		t.Errorf("pulled %d groups, want 2", pulled)
	}
}

func TestSelectExpirations_ScalpDoesNotReorderChain(t *testing.T) {
	c := chainWithDTEs(30, 2)
	dtes(t, c, mustPolicy(interfaces.Scalp))
	if c.Expirations[0].DTE != 30 {
		t.Errorf("chain expirations were reordered in place")
	}
}

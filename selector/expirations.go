package selector

import (
	"cmp"
	"crowned-trader/interfaces"
	"iter"
	"slices"
)

// SelectExpirations returns the candidate expirations for policy, best first.
// For a widening policy the sequence walks every expiration from the nearest
// outwards and is only advanced as far as the caller pulls it.
func SelectExpirations(chain *interfaces.OptionsChain, policy Policy) (iter.Seq[*interfaces.ExpirationGroup], error) {
	if policy.Widening {
		return widening(chain.Expirations), nil
	}

	var inWindow []*interfaces.ExpirationGroup
	for _, g := range chain.Expirations {
		if g.DTE >= policy.DTEMin && g.DTE <= policy.DTEMax {
			inWindow = append(inWindow, g)
		}
	}
	if len(inWindow) == 0 {
		return nil, ErrNoExpirationInWindow
	}

	slices.SortStableFunc(inWindow, func(a, b *interfaces.ExpirationGroup) int {
		ta, tb := tier(a.DTE, policy), tier(b.DTE, policy)
		if c := cmp.Compare(ta, tb); c != 0 {
			return c
		}
		if c := cmp.Compare(targetDistance(a.DTE, ta, policy), targetDistance(b.DTE, tb, policy)); c != 0 {
			return c
		}
		return a.Expiration.Compare(b.Expiration)
	})
	return slices.Values(inWindow), nil
}

// widening yields groups by ascending DTE. The ordering is computed when
// iteration starts, so the sequence can be restarted.
func widening(groups []*interfaces.ExpirationGroup) iter.Seq[*interfaces.ExpirationGroup] {
	return func(yield func(*interfaces.ExpirationGroup) bool) {
		ordered := slices.Clone(groups)
		slices.SortStableFunc(ordered, func(a, b *interfaces.ExpirationGroup) int {
			if c := cmp.Compare(a.DTE, b.DTE); c != 0 {
				return c
			}
			return a.Expiration.Compare(b.Expiration)
		})
		for _, g := range ordered {
			if g.DTE < 0 {
				continue
			}
			if !yield(g) {
				return
			}
		}
	}
}

// tier is the index of the first preferred range containing dte, or
// len(PreferredDTE) for expirations that are merely inside the window.
func tier(dte int, policy Policy) int {
	for i, r := range policy.PreferredDTE {
		if r.Contains(dte) {
			return i
		}
	}
	return len(policy.PreferredDTE)
}

// targetDistance is measured in half-days so range midpoints stay integral.
func targetDistance(dte, tierIdx int, policy Policy) int {
	var doubledTarget int
	switch {
	case policy.TargetDTE > 0:
		doubledTarget = 2 * policy.TargetDTE
	case tierIdx < len(policy.PreferredDTE):
		r := policy.PreferredDTE[tierIdx]
		doubledTarget = r.Low + r.High
	default:
		doubledTarget = policy.DTEMin + policy.DTEMax
	}
	d := 2*dte - doubledTarget
	if d < 0 {
		return -d
	}
	return d
}

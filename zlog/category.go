package zlog

// Category is the per-name binding of rules to a logical source (spec
// §4.5): every Rule whose glob matches this name, in declaration order,
// plus a union severity bitmap used to reject a call before any rule is
// even walked.
type Category struct {
	name    string
	rules   []*Rule
	bitmap  SeverityBitmap
}

func newCategory(name string, rules []*Rule) *Category {
	c := &Category{name: name, rules: rules}
	for _, r := range rules {
		if r.Severity.Negate {
			// A negated range accepts everything outside [Min,Max]; walk
			// the whole level range and set exactly the levels the rule
			// accepts, leaving the excluded range unset.
			for l := Level(0); l <= Level(maxBitmapLevel); l++ {
				if !r.Severity.Accepts(l) {
					continue
				}
				c.bitmap.Set(l)
			}
			continue
		}
		for l := r.Severity.Min; l <= r.Severity.Max; l++ {
			c.bitmap.Set(l)
		}
	}
	return c
}

// accepts is the bitmap check a log call performs before touching a
// GHandle. logImpl runs it while holding the facade's read lock; it is
// not done ahead of taking that lock.
func (c *Category) accepts(l Level) bool {
	return c.bitmap.Test(l)
}

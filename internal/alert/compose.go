// Package alert renders change events and daily snapshots into Telegram
// Markdown. Both composers are pure functions of already-computed data;
// delivery, splitting and retries belong to the notifier.
package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dstanway/grocermon/internal/detect"
	"github.com/dstanway/grocermon/internal/record"
)

const specialTag = "🏷️"

var hundred = decimal.NewFromInt(100)

// ComposeChanges renders a ranked event list as one message. The events
// are rendered in the order given; ranking is the detector's concern.
// Returns the empty string when there is nothing to report.
func ComposeChanges(title string, events []detect.ChangeEvent, now time.Time) string {
	if len(events) == 0 {
		return ""
	}

	byKind := map[detect.Kind][]detect.ChangeEvent{}
	for _, e := range events {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *%s price changes*\n", title)

	writeSection := func(header string, kind detect.Kind, line func(detect.ChangeEvent) string) {
		evs := byKind[kind]
		if len(evs) == 0 {
			return
		}
		b.WriteString("\n" + header + "\n")
		for _, e := range evs {
			b.WriteString(line(e) + "\n")
		}
	}

	writeSection("📉 *Drops*", detect.KindDrop, changeLine)
	writeSection("📈 *Rises*", detect.KindRise, changeLine)
	writeSection("🆕 *New*", detect.KindNew, func(e detect.ChangeEvent) string {
		return fmt.Sprintf("• *%s* — %s %s — %s%s",
			e.Item, e.Store.Display(), e.Branch, money(e.NewPrice), tag(e.OnSpecial))
	})
	writeSection("❌ *Removed*", detect.KindRemoved, func(e detect.ChangeEvent) string {
		return fmt.Sprintf("• *%s* — %s %s (was %s)",
			e.Item, e.Store.Display(), e.Branch, money(e.OldPrice))
	})

	fmt.Fprintf(&b, "\n_Updated %s_", now.Format("2006-01-02 15:04"))
	return b.String()
}

// changeLine renders one drop or rise with the struck-through old price,
// the new price, and the absolute and relative change.
func changeLine(e detect.ChangeEvent) string {
	return fmt.Sprintf("• *%s* — %s %s\n  ~~%s~~ → *%s*  (%s / %s%s)",
		e.Item, e.Store.Display(), e.Branch,
		money(e.OldPrice), money(e.NewPrice),
		signedMoney(e.Change), percent(e.Change, e.OldPrice), tag(e.OnSpecial))
}

// ComposeDaily renders the full day's snapshot: per basket item the
// cheapest store and every store's price inline. Basket order is
// preserved; items with no valid record from any store get an explicit
// no-data line instead of being omitted.
func ComposeDaily(title string, snap record.Snapshot, basket []record.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s daily prices*\n", title)

	for _, item := range basket {
		type entry struct {
			store record.Store
			obs   record.Observation
			price decimal.Decimal
		}
		var valid []entry
		for _, store := range record.AllStores {
			obs, ok := snap.Get(item.Key, store)
			if !ok {
				continue
			}
			price, err := obs.ParsePrice()
			if err != nil {
				continue
			}
			valid = append(valid, entry{store: store, obs: obs, price: price})
		}

		if len(valid) == 0 {
			fmt.Fprintf(&b, "\n• *%s* — no data\n", item.Key)
			continue
		}

		best := valid[0]
		for _, e := range valid[1:] {
			if e.price.LessThan(best.price) {
				best = e
			}
		}

		parts := make([]string, 0, len(valid))
		for _, e := range valid {
			parts = append(parts, fmt.Sprintf("%s: %s%s",
				e.store.Display(), money(e.price), tag(e.obs.OnSpecial)))
		}
		fmt.Fprintf(&b, "\n*%s*  best *%s* (%s)\n  %s\n",
			item.Key, money(best.price), best.store.Display(), strings.Join(parts, " | "))
	}
	return b.String()
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// signedMoney renders a change amount with an explicit sign: "-$0.50",
// "+$1.10".
func signedMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + money(d.Abs())
	}
	return "+" + money(d)
}

// percent renders change relative to the old price, rounded to whole
// percent, with an explicit sign.
func percent(change, old decimal.Decimal) string {
	if old.IsZero() {
		return "+0%"
	}
	p := change.Div(old).Mul(hundred).Round(0)
	if p.IsNegative() {
		return p.String() + "%"
	}
	return "+" + p.String() + "%"
}

func tag(onSpecial bool) string {
	if onSpecial {
		return specialTag
	}
	return ""
}

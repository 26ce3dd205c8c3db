package strip

import (
	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/settings"
)

// Limiter fields. An extension that declares them gets power limiting at
// Show, after brightness.
const (
	WhiteCapField = "white_cap"
	BudgetField   = "budget_ma"
)

// ChannelMilliamps is the draw of one component at full scale (WS2812).
const ChannelMilliamps = 20

// limiterKnee is the fraction of the budget where soft scaling starts.
const limiterKnee = 0.9

func limiterFields() []hal.Field {
	return []hal.Field{
		// percent of a full white pixel (all components at 255)
		{Name: WhiteCapField, Type: settings.TypeInt, Int: 100, Check: hal.IntRange(1, 100)},
		// 0 disables the global budget
		{Name: BudgetField, Type: settings.TypeInt, Int: 0, Check: hal.IntRange(0, 1000000)},
	}
}

// limit caps each pixel so its component sum stays under whiteCap percent of
// full white, then scales the whole frame so the estimated current stays
// under budget mA. Frames are 8 bit with bpp components per pixel. frame is
// modified in place.
func limit(frame []byte, bpp, whiteCap, budget int) {
	if bpp <= 0 {
		return
	}
	capSum := whiteCap * bpp * 255 / 100
	if whiteCap < 100 {
		for i := 0; i+bpp <= len(frame); i += bpp {
			px := frame[i : i+bpp]
			s := 0
			for _, c := range px {
				s += int(c)
			}
			if s > capSum {
				for j, c := range px {
					px[j] = byte(int(c) * capSum / s)
				}
			}
		}
	}
	if budget <= 0 {
		return
	}
	var sum int
	for _, c := range frame {
		sum += int(c)
	}
	total := float64(sum) * ChannelMilliamps / 255
	if total <= 0 {
		return
	}
	ratio := total / float64(budget)
	var s float64
	switch {
	case ratio <= limiterKnee:
		return
	case ratio <= 1:
		// ease from 1 at the knee down to budget/total at the budget
		minS := float64(budget) / total
		t := (ratio - limiterKnee) / (1 - limiterKnee)
		s = 1 - t*(1-minS)
	default:
		s = float64(budget) / total
	}
	for i, c := range frame {
		frame[i] = byte(float64(c) * s)
	}
}

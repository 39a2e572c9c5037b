package stats

import (
	"fmt"

	"github.com/pable/go-hud-stats/internal/model"
)

var streetLabels = [5]string{"preflop/3rd", "flop/4th", "turn/5th", "river/6th", "7th"}

func registerCatalogue(r *Registry) {
	hands := col(model.HandsKey)

	r.Register("n", false, handCount)
	r.Register("playername", false, playerName)
	r.Register("totalprofit", false, totalProfit)
	r.Register("profit100", false, profit100)
	r.Register("bbper100", false, bbPer100)
	r.Register("BBper100", false, bigBetsPer100)
	r.Register("agg_fact", false, aggFactor)

	// ---- Pre-flop ----
	r.ratio("vpip", ratio{"v", "vpip", "Voluntarily Put In Pot Pre-Flop%", col("street0VPI"), hands})
	r.ratio("pfr", ratio{"p", "pfr", "Pre-Flop Raise %", col("street0Aggr"), hands})
	r.ratio("three_B", ratio{"3B", "3B_pf", "% 3 Bet preflop/3rd", col("street0_3BDone"), col("street0_3BChance")})
	r.ratio("four_B", ratio{"4B", "4B_pf", "% 4 Bet preflop/3rd", col("street0_4BDone"), col("street0_4BChance")})
	r.ratio("cfour_B", ratio{"C4B", "C4B_pf", "% cold 4 Bet preflop/3rd", col("street0_C4BDone"), col("street0_C4BChance")})
	r.ratio("f_3bet", ratio{"F3B", "F3B_pf", "% fold to 3 Bet preflop/3rd", col("street0_FoldTo3BDone"), col("street0_FoldTo3BChance")})
	r.ratio("f_4bet", ratio{"F4B", "F4B_pf", "% fold to 4 Bet preflop/3rd", col("street0_FoldTo4BDone"), col("street0_FoldTo4BChance")})
	r.ratio("squeeze", ratio{"SQZ", "SQZ_pf", "% squeeze preflop", col("street0_SqueezeDone"), col("street0_SqueezeChance")})
	r.ratio("rfi", ratio{"rfi", "rfi", "% raise first in", col("raisedFirstIn"), col("raiseFirstInChance")})
	r.ratio("steal", ratio{"st", "steal", "% steal attempted", col("stealAttempted"), col("stealAttemptChance")})
	r.ratio("success_steal", ratio{"s_st", "s_steal", "% steal success", col("success_Steal"), col("stealAttempted")})
	r.ratio("raise_to_steal", ratio{"RST", "R_BI_ST", "% raise to steal", col("raiseToStealDone"), col("raiseToStealChance")})
	r.ratio("f_SB_steal", ratio{"fSB", "fSB_s", "% folded SB to steal", col("foldedSbToSteal"), col("foldSbToStealChance")})
	r.ratio("f_BB_steal", ratio{"fBB", "fBB_s", "% folded BB to steal", col("foldedBbToSteal"), col("foldBbToStealChance")})
	r.ratio("f_steal", ratio{"fB", "fB_s", "% folded blind to steal",
		cols("foldedSbToSteal", "foldedBbToSteal"), cols("foldSbToStealChance", "foldBbToStealChance")})

	// ---- Post-flop ----
	r.ratio("saw_f", ratio{"sf", "saw_f", "Flop Seen %", col("street1Seen"), hands})
	r.ratio("fold_f", ratio{"ff", "fold_f", "folded flop/4th", col("foldToOtherRaisedStreet1"), col("street1Seen")})
	r.ratio("wtsd", ratio{"w", "wtsd", "% went to showdown", col("sawShowdown"), col("street1Seen")})
	r.ratio("wmsd", ratio{"w", "wmsd", "% won money at showdown", col("wonAtSD"), col("sawShowdown")})
	r.ratio("WMsF", ratio{"wf", "w_w_f", "% won$/saw flop/4th", col("wonWhenSeenStreet1"), col("street1Seen")})
	r.ratio("a_freq_123", ratio{"afq", "postf_aggfq", "Post-Flop Aggression Freq",
		cols(streets("street%dAggr", 1, 3)...), cols(streets("street%dSeen", 1, 3)...)})
	r.ratio("agg_freq", ratio{"afr", "agg_fr", "Aggression Freq", postFlopAggr, aggFreqDen})
	r.ratio("cbet", ratio{"cbet", "cbet", "% continuation bet",
		cols(streets("street%dCBDone", 1, 4)...), cols(streets("street%dCBChance", 1, 4)...)})

	for n := 1; n <= 4; n++ {
		s := streetLabels[n]
		r.ratio(fmt.Sprintf("a_freq%d", n), ratio{fmt.Sprintf("a%d", n), fmt.Sprintf("a_fq_%d", n),
			"Aggression Freq " + s, col(fmt.Sprintf("street%dAggr", n)), col(fmt.Sprintf("street%dSeen", n))})
		r.ratio(fmt.Sprintf("cb%d", n), ratio{fmt.Sprintf("cb%d", n), fmt.Sprintf("cb_%d", n),
			"% continuation bet " + s, col(fmt.Sprintf("street%dCBDone", n)), col(fmt.Sprintf("street%dCBChance", n))})
		r.ratio(fmt.Sprintf("f_cb%d", n), ratio{fmt.Sprintf("f_cb%d", n), fmt.Sprintf("f_cb_%d", n),
			"% fold to continuation bet " + s, col(fmt.Sprintf("foldToStreet%dCBDone", n)), col(fmt.Sprintf("foldToStreet%dCBChance", n))})
		r.ratio(fmt.Sprintf("ccr%d", n), ratio{fmt.Sprintf("ccr%d", n), fmt.Sprintf("ccr_%d", n),
			"% check call/raise " + s, col(fmt.Sprintf("street%dCheckCallRaiseDone", n)), col(fmt.Sprintf("street%dCheckCallRaiseChance", n))})
		r.ratio(fmt.Sprintf("ffreq%d", n), ratio{fmt.Sprintf("ff%d", n), fmt.Sprintf("ff_%d", n),
			"% fold frequency " + s, col(fmt.Sprintf("foldToOtherRaisedStreet%d", n)), col(fmt.Sprintf("otherRaisedStreet%d", n))})
	}
}

func postFlopAggr(c model.Counters) int64 {
	return c.Sum(streets("street%dAggr", 1, 4)...)
}

func postFlopCalls(c model.Counters) int64 {
	return c.Sum(streets("street%dCalls", 1, 4)...)
}

// aggFreqDen is every post-flop bet, raise, call or fold.
func aggFreqDen(c model.Counters) int64 {
	return postFlopAggr(c) + postFlopCalls(c) + c.Sum(streets("foldToOtherRaisedStreet%d", 1, 4)...)
}

// handCount shows large samples as "12.3k". It is never NA.
func handCount(in Input) Result {
	n := in.Counters[model.HandsKey]
	display := fmt.Sprintf("%d", n)
	if n >= 10000 {
		k, d := n/1000, (n%1000+50)/100
		if d == 10 {
			k, d = k+1, 0
		}
		display = fmt.Sprintf("%d.%dk", k, d)
	}
	return Result{
		Value:     float64(n),
		Display:   display,
		Hint:      fmt.Sprintf("n=%d", n),
		Verbose:   fmt.Sprintf("n=%d", n),
		Breakdown: fmt.Sprintf("(%d)", n),
		Label:     "number hands seen",
	}
}

func playerName(in Input) Result {
	return Result{Display: in.Player, Hint: in.Player, Verbose: in.Player, Breakdown: in.Player, Label: in.Player}
}

func totalProfit(in Input) Result {
	v := float64(in.Counters["totalProfit"]) / 100
	s := fmt.Sprintf("%.2f", v)
	return Result{
		Value:     v,
		Display:   "$" + s,
		Hint:      "tp=$" + s,
		Verbose:   "totalprofit=$" + s,
		Breakdown: fmt.Sprintf("(%d)", in.Counters["totalProfit"]),
		Label:     "Total Profit",
	}
}

// profit100 is profit in cents per hand, which reads as currency per 100 hands.
func profit100(in Input) Result {
	net, n := in.Counters["totalProfit"], in.Counters[model.HandsKey]
	if n == 0 {
		return naResult("p", "p/100", "profit/100hands")
	}
	v := float64(net) / float64(n)
	s := fmt.Sprintf("%.2f", v)
	return Result{Value: v, Display: s, Hint: "p=" + s, Verbose: "p/100=" + s,
		Breakdown: fmt.Sprintf("(%d/%d)", net, n), Label: "profit/100hands"}
}

// bbPer100 divides by the summed big blind of every hand, so the hand
// count cancels out.
func bbPer100(in Input) Result {
	net, bb := in.Counters["totalProfit"], in.Counters["bigBlind"]
	if bb == 0 {
		return naResult("bb100", "bb100", "big blinds/100 hands")
	}
	v := 100 * float64(net) / float64(bb)
	s := fmt.Sprintf("%5.3f", v)
	return Result{Value: v, Display: s, Hint: "bb100=" + s, Verbose: "bb100=" + s,
		Breakdown: fmt.Sprintf("(%d/%d)", 100*net, bb), Label: "big blinds/100 hands"}
}

func bigBetsPer100(in Input) Result {
	net, bb := in.Counters["totalProfit"], in.Counters["bigBlind"]
	if bb == 0 {
		return naResult("BB100", "BB100", "Big Bets/100 hands")
	}
	v := 50 * float64(net) / float64(bb)
	s := fmt.Sprintf("%5.3f", v)
	return Result{Value: v, Display: s, Hint: "BB100=" + s, Verbose: "BB100=" + s,
		Breakdown: fmt.Sprintf("(%d/%d)", 100*net, 2*bb), Label: "Big Bets/100 hands"}
}

// aggFactor is post-flop aggression over calls; with no calls it is the
// raw aggression count.
func aggFactor(in Input) Result {
	aggr, calls := postFlopAggr(in.Counters), postFlopCalls(in.Counters)
	if aggr == 0 && calls == 0 {
		return naResult("afa", "agg_fa", "Aggression Factor")
	}
	v := float64(aggr)
	if calls > 0 {
		v /= float64(calls)
	}
	s := fmt.Sprintf("%2.2f", v)
	return Result{Value: v, Display: s, Hint: "afa=" + s, Verbose: "agg_fa=" + s,
		Breakdown: fmt.Sprintf("(%d/%d)", aggr, calls), Label: "Aggression Factor"}
}

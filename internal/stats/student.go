package stats

// Two-sided 95% Student t critical values, indexed by degrees of freedom - 1.
var studentT95 = []float64{
	12.7062, 4.3027, 3.1824, 2.7764, 2.5706,
	2.4469, 2.3646, 2.3060, 2.2622, 2.2281,
	2.2010, 2.1788, 2.1604, 2.1448, 2.1314,
	2.1199, 2.1098, 2.1009, 2.0930, 2.0860,
	2.0796, 2.0739, 2.0687, 2.0639, 2.0595,
	2.0555, 2.0518, 2.0484, 2.0452, 2.0423,
}

// normal95 is used once the table runs out.
const normal95 = 1.96

// StudentT95 returns the two-sided 95% critical value for df degrees of freedom.
// It returns 0 when df < 1, since no interval can be formed from one sample.
func StudentT95(df int) float64 {
	switch {
	case df < 1:
		return 0
	case df <= len(studentT95):
		return studentT95[df-1]
	default:
		return normal95
	}
}

package scoring

// TotalWeight is what a classroom's composition percents must sum to.
const TotalWeight = 100

// WeightedGrade pairs a grade value with its composition's weight percent.
type WeightedGrade struct {
	Grade   float64
	Percent int
}

// SumPercents adds up composition weights. Callers reject any scheme whose
// total is not exactly TotalWeight; there is no tolerance.
func SumPercents(percents []int) int {
	total := 0
	for _, p := range percents {
		total += p
	}
	return total
}

// Overall computes the weighted total grade for one student across a full
// grading scheme. Missing cells contribute zero; pass them as such.
func Overall(grades []WeightedGrade) float64 {
	total := 0.0
	for _, g := range grades {
		total += g.Grade * float64(g.Percent) / TotalWeight
	}
	return total
}

// InRange reports whether a grade value is inside the committable range.
func InRange(grade float64) bool {
	return grade >= 0 && grade <= 10
}

package textsig

import "regexp"

// SPIN vocabularies. Counts are additive across an agent's whole
// conversation; presence of all four stages marks a complete cycle.
var (
	// S (Situation): questions collecting the customer's current state.
	reSpinS = regexp.MustCompile(`(?i)(какой|какая|какие|сколько|когда|куда|где|откуда|размер|рост|вес|параметр|характеристик|для кого|кому|как часто|как долго|как давно|расскажите|подскажите|уточните)`)

	// P (Problem): surfacing dissatisfaction.
	reSpinP = regexp.MustCompile(`(?i)(что не устраивает|что не нравится|что не подходит|какие сложности|какие проблемы|какие трудности|что беспокоит|что волнует|не устраивает|не подходит|не нравится|проблема|сложность|трудность|неудобство|что мешает|не хватает|недостаток)`)

	// I (Implication): amplifying the cost of the problem.
	reSpinI = regexp.MustCompile(`(?i)(к чему это приводит|к чему приводит|что это значит|как это влияет|как влияет|как это сказывается|что будет если|что произойдёт|что произойдет|последствия|влияние|как отражается|из-за этого|в результате|это приведёт|это приведет)`)

	// N (Need-payoff): steering toward the value of solving it.
	reSpinN = regexp.MustCompile(`(?i)(как это поможет|как поможет|что это даст|что даст|зачем это нужно|для чего|выгода|преимущество|польза|это позволит|это поможет|важно для вас|важно ли|нужно ли|будет удобнее|будет лучше|будет проще|решит проблему|решит вопрос|сэкономит|упростит|ускорит|улучшит)`)
)

// SpinCounts returns the number of S/P/I/N vocabulary hits in the text.
func SpinCounts(text string) (s, p, i, n int) {
	if text == "" {
		return 0, 0, 0, 0
	}
	s = len(reSpinS.FindAllString(text, -1))
	p = len(reSpinP.FindAllString(text, -1))
	i = len(reSpinI.FindAllString(text, -1))
	n = len(reSpinN.FindAllString(text, -1))
	return s, p, i, n
}

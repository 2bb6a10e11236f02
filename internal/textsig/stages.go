package textsig

import (
	"regexp"
	"unicode/utf8"
)

// Stage is the single label assigned to a message when a caller needs a
// flow view of the dialog rather than independent detectors.
type Stage string

const (
	StageUnknown      Stage = "unknown"
	StageGreeting     Stage = "greeting"
	StagePresentation Stage = "presentation"
	StageNeeds        Stage = "needs_identification"
	StageObjection    Stage = "objections_handling"
	StageClosing      Stage = "closing"
)

var (
	reStageClosing   = regexp.MustCompile(`(?i)(оформим|оформить|заказ|оплат|ссылка|купить|приобрести|заказать|доставка|адрес доставки)`)
	reStageObjection = regexp.MustCompile(`(?i)(однако|понимаю|сомнени|согласен|вы правы|есть решение|альтернатив|вариант)`)
	reStageNeedsWord = regexp.MustCompile(`(?i)(какой|какая|какие|сколько|когда|где|для кого|что вас интересует|что нужно|расскажите|подскажите|как|почему|зачем)`)
	reStagePresent   = regexp.MustCompile(`(?i)(у нас|мы предлагаем|характеристик|преимуществ|подходит для|идеально для|рекомендую|советую|состав|материал|размер|цвет|цена|стоимость|модель)`)
	reStageGreeting  = regexp.MustCompile(`(?i)(здравствуй|добрый|привет|добро пожаловать|рады|чем могу помочь)`)
)

// StageContext is the input to the stage-flow classifier. Position is
// the message's zero-based index among the agent's messages; Total is
// how many agent messages the chat has.
type StageContext struct {
	Text     string
	Position int
	Total    int
}

type stageRule struct {
	stage Stage
	match func(c StageContext) bool
}

// stageRules is evaluated top to bottom, first match wins. Closing must
// dominate: checkout/payment phrasing routinely co-occurs with question
// marks, and the business intent outranks a generic question label.
var stageRules = []stageRule{
	{StageClosing, func(c StageContext) bool {
		return reStageClosing.MatchString(c.Text)
	}},
	{StageObjection, func(c StageContext) bool {
		return utf8.RuneCountInString(c.Text) > 20 && reStageObjection.MatchString(c.Text)
	}},
	{StageNeeds, func(c StageContext) bool {
		if !HasQuestion(c.Text) {
			return false
		}
		return reStageNeedsWord.MatchString(c.Text) || utf8.RuneCountInString(c.Text) < 100
	}},
	{StagePresentation, func(c StageContext) bool {
		return utf8.RuneCountInString(c.Text) > 15 && reStagePresent.MatchString(c.Text)
	}},
	{StageGreeting, func(c StageContext) bool {
		early := c.Position <= 2 || (c.Total > 0 && float64(c.Position)/float64(c.Total) < 0.1)
		return early && reStageGreeting.MatchString(c.Text)
	}},
}

// ClassifyStage assigns one stage label per message using the ordered
// rule table.
func ClassifyStage(c StageContext) Stage {
	if utf8.RuneCountInString(c.Text) < 3 {
		return StageUnknown
	}
	for _, r := range stageRules {
		if r.match(c) {
			return r.stage
		}
	}
	return StageUnknown
}

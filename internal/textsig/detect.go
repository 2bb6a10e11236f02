// Package textsig holds the deterministic text heuristics: intent and
// question detectors, SPIN stage vocabularies, the stage-flow rule
// table, and snippet redaction. Detectors are independent; one text may
// trigger several.
package textsig

import (
	"regexp"
	"strings"
)

// NOTE: RE2's \b is ASCII-only, so the Cyrillic vocabularies match as
// case-insensitive substrings/alternations rather than \b-bounded words.

var (
	reLeadQuestion = regexp.MustCompile(`(?i)(^|\s)(что|как|какой|какая|какие|сколько|когда|куда|зачем|почему)`)
	reTrailQMark   = regexp.MustCompile(`\?\s*$`)

	rePriceIntent = regexp.MustCompile(`(?i)(цена|сколько стоит|прайс|стоимость)`)
	reBuyIntent   = regexp.MustCompile(`(?i)(хочу|купить|куплю|закажу|заказать|оформить|оформляем)`)
	reAvailIntent = regexp.MustCompile(`(?i)(наличие|наличии|в наличии|есть ли)`)

	// Broad customer-interest vocabulary used for "high intent" chats.
	reHighIntent = regexp.MustCompile(`(?i)(цена|стоимост|сколько|налич|размер|доставк|оплат|адрес|заказ|оформ|хочу|купить)`)

	// Narrow next-step cues checked against the agent's replies when the
	// customer shows purchase intent.
	reNextStep = regexp.MustCompile(`(?i)(оформим|ссылк|корзин|оплат|доставк)`)

	// Wider closing/next-step vocabulary for the last outbound message;
	// a trailing question also counts as moving the dialog forward.
	reNextStepWide = regexp.MustCompile(`(?i)(оформим|оформляю|заказ|доставка|адрес|самовывоз|оплат|ссылк|подтвердите|куда отправить|какой размер|какая модель|\?)`)

	reUpsell = regexp.MustCompile(`(?i)(в комплект|набор|дополнит|к этому|ещё можно|еще можно|рекомендую|возьмите|возьми|акци|скидк|подарок)`)

	reSituationCue = regexp.MustCompile(`(?i)(какой|какая|какие|сколько|когда|куда|размер|рост|вес|предпочт|для кого)`)

	reOpenQuestion = regexp.MustCompile(`(?i)(какой|какая|какие|как|сколько|когда|куда|где|откуда|зачем|почему|что|кто|кому|для кого|расскажите|подскажите|объясните|опишите|уточните)`)

	reClosedQuestion = regexp.MustCompile(`(?i)((да|нет|верно|правильно)\s*\?|(вам|вы)\s+(подходит|нравится|удобно|подойдёт|подойдет|нужен|нужна|нужно)\s*\?)`)
)

// HasQuestion reports a trailing question mark or an interrogative lead
// word anywhere in the text.
func HasQuestion(text string) bool {
	if text == "" {
		return false
	}
	return reTrailQMark.MatchString(text) || reLeadQuestion.MatchString(text)
}

// CountQuestions counts question marks plus one extra hit when an
// interrogative lead word opens a phrase without its own mark.
func CountQuestions(text string) int {
	if text == "" {
		return 0
	}
	q := strings.Count(text, "?")
	if reLeadQuestion.MatchString(text) {
		q++
	}
	return q
}

// HasPurchaseIntent reports price, buy, or availability interest. Used
// by the advice rules against inbound text.
func HasPurchaseIntent(text string) bool {
	return rePriceIntent.MatchString(text) || reBuyIntent.MatchString(text) || reAvailIntent.MatchString(text)
}

// HasHighIntent is the broader interest detector used for behavior
// features and example filtering.
func HasHighIntent(text string) bool {
	return reHighIntent.MatchString(text)
}

// HasNextStep reports an explicit next-step cue (checkout, link, cart,
// payment, delivery) in the agent's text.
func HasNextStep(text string) bool {
	return reNextStep.MatchString(text)
}

// HasNextStepWide is the behavior-feature variant: a question in the
// last outbound message also counts as a next step.
func HasNextStepWide(text string) bool {
	return reNextStepWide.MatchString(text)
}

func HasUpsell(text string) bool {
	return reUpsell.MatchString(text)
}

// HasSituationCue reports the situational wordlist used by the
// simplified spin-rate feature (distinct from the SPIN-S counter).
func HasSituationCue(text string) bool {
	return reSituationCue.MatchString(text)
}

// IsOpenQuestion reports a question inviting a free-form answer.
func IsOpenQuestion(text string) bool {
	if !strings.Contains(text, "?") {
		return false
	}
	return reOpenQuestion.MatchString(text)
}

// IsClosedQuestion reports a yes/no or pick-one question shape.
func IsClosedQuestion(text string) bool {
	if !strings.Contains(text, "?") {
		return false
	}
	return reClosedQuestion.MatchString(text)
}

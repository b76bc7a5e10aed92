package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// promptReplacements заменяет рискованные для модерации изображений слова нейтральными.
// Значения не должны встречаться ни среди ключей, ни в promptBlocklist.
var promptReplacements = map[string]string{
	"gun":        "item",
	"guns":       "items",
	"pistol":     "item",
	"rifle":      "item",
	"shotgun":    "item",
	"weapon":     "item",
	"weapons":    "items",
	"knife":      "tool",
	"knives":     "tools",
	"sword":      "staff",
	"swords":     "staffs",
	"dagger":     "tool",
	"bomb":       "device",
	"bombs":      "devices",
	"grenade":    "device",
	"explosive":  "device",
	"explosion":  "burst of light",
	"explosions": "bursts of light",
	"blood":      "red paint",
	"bloody":     "messy",
	"bleeding":   "hurt",
	"fight":      "confrontation",
	"fighting":   "confronting",
	"battle":     "encounter",
	"war":        "conflict",
	"attack":     "approach",
	"attacks":    "approaches",
	"attacking":  "approaching",
	"shoot":      "aim",
	"shooting":   "aiming",
	"shot":       "moment",
	"kill":       "defeat",
	"kills":      "defeats",
	"killing":    "defeating",
	"killed":     "defeated",
	"dead":       "motionless",
	"death":      "ending",
	"die":        "fall",
	"dies":       "falls",
	"dying":      "fading",
	"corpse":     "figure",
	"victim":     "person",
	"injured":    "tired",
	"wound":      "mark",
	"wounded":    "marked",
	"scary":      "mysterious",
	"horror":     "suspense",
	"terrifying": "intense",
	"demon":      "creature",
	"monster":    "creature",
	"zombie":     "creature",
	"naked":      "casual",
	"nude":       "casual",
	"drunk":      "sleepy",
	"cigarette":  "pencil",
	"smoking":    "relaxing",
}

// promptBlocklist - слова, которые удаляются целиком.
var promptBlocklist = map[string]struct{}{
	"gore":        {},
	"gory":        {},
	"violence":    {},
	"violent":     {},
	"brutal":      {},
	"brutally":    {},
	"murder":      {},
	"murdered":    {},
	"murderer":    {},
	"massacre":    {},
	"slaughter":   {},
	"torture":     {},
	"tortured":    {},
	"suicide":     {},
	"mutilated":   {},
	"decapitated": {},
	"dismembered": {},
	"stab":        {},
	"stabbed":     {},
	"stabbing":    {},
	"sexy":        {},
	"sexual":      {},
	"erotic":      {},
	"nsfw":        {},
	"drugs":       {},
	"cocaine":     {},
	"heroin":      {},
	"terrorist":   {},
	"terrorism":   {},
	"nazi":        {},
	"hate":        {},
	"racist":      {},
	"graphic":     {},
	"disturbing":  {},
	"grotesque":   {},
	"creepy":      {},
	"sinister":    {},
	"evil":        {},
}

// SanitizePrompt убирает из текста слова, на которые срабатывает модерация модели изображений.
// Текст приводится к нижнему регистру, пробелы схлопываются. Повторный вызов результат не меняет.
func SanitizePrompt(text string) string {
	words := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(words))
	for _, word := range words {
		lead, core, trail := splitWord(word)
		if replacement, ok := promptReplacements[core]; ok {
			out = append(out, lead+replacement+trail)
			continue
		}
		if _, blocked := promptBlocklist[core]; blocked {
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}

// splitWord отделяет пунктуацию по краям слова.
func splitWord(word string) (lead, core, trail string) {
	isWordRune := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	start := strings.IndexFunc(word, isWordRune)
	if start == -1 {
		return word, "", ""
	}
	end := strings.LastIndexFunc(word, isWordRune)
	_, size := utf8.DecodeRuneInString(word[end:])
	return word[:start], word[start : end+size], word[end+size:]
}

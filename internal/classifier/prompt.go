package classifier

import (
	"strings"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

// Instruction is sent as the system message, or prepended to the prompt for
// backends that only take user messages.
const Instruction = "ЧЕТКО СЛЕДУЙ ИНСТРУКЦИЯМ, ДАННЫМ В СООБЩЕНИИ"

// PromptBuilder renders the classification request for one message.
type PromptBuilder struct {
	regions  string
	wildcard models.Region
}

func NewPromptBuilder(regions []models.Region, wildcard models.Region) *PromptBuilder {
	names := make([]string, 0, len(regions)+1)
	for _, r := range regions {
		names = append(names, string(r))
	}
	names = append(names, string(wildcard))
	return &PromptBuilder{
		regions:  strings.Join(names, ", "),
		wildcard: wildcard,
	}
}

func (p *PromptBuilder) Build(text, source string) string {
	var b strings.Builder
	b.WriteString("Проанализируй следующий текст и выдай результат СТРОГО в формате:\n\n")
	b.WriteString("[УРОВЕНЬ]/[РЕГИОН]/[ТИП ОПАСНОСТИ]\n\n")

	b.WriteString("УРОВЕНЬ:\n")
	b.WriteString("- HD - высокий уровень опасности (по умолчанию для ракетной и воздушной тревоги, если не указано иное)\n")
	b.WriteString("- MD - повышенный уровень опасности (включая \"внимание\", \"повышенная готовность\")\n")
	b.WriteString("- AC - отмена тревоги или отсутствие угрозы\n\n")

	b.WriteString("РЕГИОН:\n")
	b.WriteString("Выводи точное официальное название субъекта Российской Федерации.\n")
	b.WriteString("Если в сообщении указан город или населённый пункт, выведи субъект РФ, к которому он относится.\n")
	b.WriteString("Разрешается использовать только следующие названия (в точности как написано):\n")
	b.WriteString(p.regions)
	b.WriteString("\nРегион \"")
	b.WriteString(string(p.wildcard))
	b.WriteString("\" использовать только при глобальных уведомлениях и, как правило, только для AC.\n\n")

	b.WriteString("ТИП ОПАСНОСТИ:\n")
	b.WriteString("Только одно из: UAV, AIR, ROCKET, UB, ALL\n")
	b.WriteString("UAV - беспилотный летательный аппарат, БПЛА\n")
	b.WriteString("AIR - воздушная опасность (включая МВШ, малый воздушный шар)\n")
	b.WriteString("ROCKET - ракетная опасность\n")
	b.WriteString("UB - безэкипажный катер\n")
	b.WriteString("ALL - все опасности\n\n")

	b.WriteString("НАЗВАНИЕ ТЕЛЕГРАМ-КАНАЛА:\n")
	b.WriteString(source)
	b.WriteString("\n\n")

	b.WriteString("ПРАВИЛА:\n")
	b.WriteString("- Если тревога отменена, использовать AC.\n")
	b.WriteString("- Если несколько регионов, вывести для каждого отдельную запись через запятую без пробела (например: MD/Рязанская область/UAV,HD/Республика Мордовия/UAV).\n")
	b.WriteString("- Использовать только символ \"/\" для разделения полей.\n")
	b.WriteString("- Выводить только итоговую строку, без лишних слов, кавычек и пояснений.\n")
	b.WriteString("- \"наблюдается сбитие\", \"пролетают\" и подобное означает HD.\n")
	b.WriteString("- \"тишина\", \"чистое небо\", \"угрозы не фиксируются\" означает AC и ALL для региона, например AC/Брянская область/ALL.\n")
	b.WriteString("- Те же формулировки для всей страны означают AC/")
	b.WriteString(string(p.wildcard))
	b.WriteString("/ALL.\n")
	b.WriteString("- Учитывать только регионы, о которых сообщает данный канал.\n\n")

	b.WriteString("Текст для анализа:\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}

// Package render builds the HTML message bodies sent by the bot.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ruznama_bot/internal/domain"
)

const (
	dayColumn  = 2
	timeColumn = 5
	maxDays    = 31
	emptyClock = "—"
)

var monthNominative = map[time.Month]string{
	time.January:   "январь",
	time.February:  "февраль",
	time.March:     "март",
	time.April:     "апрель",
	time.May:       "май",
	time.June:      "июнь",
	time.July:      "июль",
	time.August:    "август",
	time.September: "сентябрь",
	time.October:   "октябрь",
	time.November:  "ноябрь",
	time.December:  "декабрь",
}

var monthGenitive = map[time.Month]string{
	time.January:   "января",
	time.February:  "февраля",
	time.March:     "марта",
	time.April:     "апреля",
	time.May:       "мая",
	time.June:      "июня",
	time.July:      "июля",
	time.August:    "августа",
	time.September: "сентября",
	time.October:   "октября",
	time.November:  "ноября",
	time.December:  "декабря",
}

var prayerIcons = map[domain.Prayer]string{
	domain.PrayerFajr:    "🕌",
	domain.PrayerSunrise: "🌅",
	domain.PrayerDhuhr:   "☀️",
	domain.PrayerAsr:     "🌇",
	domain.PrayerMaghrib: "🌆",
	domain.PrayerIsha:    "🌙",
}

// Stats are the counters shown by /stats and the admin panel.
type Stats struct {
	Users      int64
	Subscribed int64
	Cities     int
	Districts  int
	Quotes     int64
}

// MonthName returns the capitalised Russian month name, e.g. "Январь".
func MonthName(m time.Month) string {
	name, ok := monthNominative[m]
	if !ok {
		return m.String()
	}
	return cases.Title(language.Russian).String(name)
}

// ParseMonth resolves a Russian or English month name.
func ParseMonth(value string) (time.Month, bool) {
	needle := strings.ToLower(strings.TrimSpace(value))
	for m, name := range monthNominative {
		if needle == name || needle == strings.ToLower(m.String()) {
			return m, true
		}
	}
	return 0, false
}

// Welcome is the /start greeting.
func Welcome() string {
	return "🕌 <b>Добро пожаловать в «Рузнама»</b>\n" +
		"«Самое лучшее деяние — это намаз, совершённый в начале отведённого для него времени». (Тирмизи)\n" +
		"📍 Выберите раздел или введите название населённого пункта.\n" +
		"🕋 Благодать начинается с намерения."
}

// MainMenu is the text shown above the main menu keyboard.
func MainMenu() string {
	return "🏠 Выберите раздел:"
}

// Help lists the available commands; admin commands are appended for admins.
func Help(admin bool) string {
	var b strings.Builder
	b.WriteString("📘 <b>Справка по боту</b>\n")
	b.WriteString("• <b>/start</b> — Главное меню\n")
	b.WriteString("• <b>/help</b> — Помощь\n")
	b.WriteString("• <b>/stats</b> — Статистика\n")
	b.WriteString("• <b>/about</b> — О проекте\n")
	b.WriteString("• <b>/newquote</b> — Новый хадис\n")
	b.WriteString("• <b>/day</b> — Времена намазов на сегодня\n")
	b.WriteString("• <b>/month</b> — Таблица на месяц\n")
	b.WriteString("• <b>/year</b> — Выбрать месяц\n")
	b.WriteString("• <b>/subscribe</b> — Включить напоминания\n")
	b.WriteString("• <b>/unsubscribe</b> — Отключить напоминания\n")
	b.WriteString("🔍 Или просто отправьте название города или района.")
	if admin {
		b.WriteString("\n\n🔐 <b>Администратор</b>\n")
		b.WriteString("• <b>/admin</b> — Админ-панель\n")
		b.WriteString("• <b>/broadcast</b> текст — Рассылка\n")
		b.WriteString("• <b>/quotes</b> — Список хадисов\n")
		b.WriteString("• <b>/addquote</b> текст — автор\n")
		b.WriteString("• <b>/delquote</b> N")
	}
	return b.String()
}

// About describes the bot.
func About() string {
	return "ℹ️ <b>О боте «Рузнама»</b>\n" +
		"🕌 Предоставляет точные времена намазов для городов и районов.\n" +
		"🔔 Напоминает о намазе заранее, если включить напоминания.\n" +
		"📩 Создан с заботой о верующих."
}

// StatsText renders the public statistics card.
func StatsText(s Stats) string {
	return fmt.Sprintf("📊 <b>Статистика бота</b>\n"+
		"👥 <b>Пользователей:</b> <code>%d</code>\n"+
		"🔔 <b>С напоминаниями:</b> <code>%d</code>\n"+
		"🏙️ <b>Городов:</b> <code>%d</code>\n"+
		"🏘️ <b>Районов:</b> <code>%d</code>\n"+
		"🕌 <b>Всего мест:</b> <code>%d</code>",
		s.Users, s.Subscribed, s.Cities, s.Districts, s.Cities+s.Districts)
}

// AdminStats renders the admin statistics card.
func AdminStats(s Stats) string {
	return fmt.Sprintf("📊 <b>Админ-статистика</b>\n\n"+
		"👥 Пользователей: <b>%d</b>\n"+
		"🔔 С напоминаниями: <b>%d</b>\n"+
		"🕌 Всего мест: <b>%d</b>\n"+
		"📜 Хадисов: <b>%d</b>",
		s.Users, s.Subscribed, s.Cities+s.Districts, s.Quotes)
}

// ChooseKind asks whether to browse cities or districts.
func ChooseKind() string {
	return "🕌 <b>Выберите тип населённого пункта:</b>"
}

// AdminPanel is the header of the admin menu.
func AdminPanel() string {
	return "🔐 <b>Админ-панель</b>\n\nВыберите действие:"
}

// Quote renders a hadith card.
func Quote(q domain.Quote) string {
	return fmt.Sprintf("📘 <b>Хадис дня</b>\n❝ <i>%s</i> ❞\n— <b>%s</b>",
		html.EscapeString(q.Text), html.EscapeString(q.Author))
}

// QuoteList renders the numbered hadith list shown to admins.
func QuoteList(quotes []domain.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📚 <b>Список хадисов</b> (%d шт.)\n\n", len(quotes))
	if len(quotes) == 0 {
		b.WriteString("Пока нет хадисов.")
	}
	for i, q := range quotes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "<b>%d.</b> %s — <i>%s</i>", i+1, html.EscapeString(q.Text), html.EscapeString(q.Author))
	}
	b.WriteString("\n\nЧтобы добавить: /addquote текст — автор\nЧтобы удалить: /delquote 1")
	return b.String()
}

// AddQuoteUsage explains the /addquote syntax.
func AddQuoteUsage() string {
	return "✍️ Формат:\n<code>/addquote текст — автор</code>"
}

// DelQuoteUsage explains the /delquote syntax.
func DelQuoteUsage() string {
	return "🗑️ Формат:\n<code>/delquote номер</code>\nНомера видны в /quotes"
}

// QuoteMissing reports a /delquote number outside the list.
func QuoteMissing(n int) string {
	return fmt.Sprintf("❌ Хадис №%d не найден.", n)
}

// QuoteAdded confirms a new hadith.
func QuoteAdded(q domain.Quote) string {
	return fmt.Sprintf("✅ Хадис добавлен:\n\n<i>%s</i>\n— <b>%s</b>", html.EscapeString(q.Text), html.EscapeString(q.Author))
}

// QuoteDeleted confirms a removed hadith.
func QuoteDeleted(q domain.Quote) string {
	return fmt.Sprintf("🗑️ Удалён хадис:\n\n<i>%s</i>\n— <b>%s</b>", html.EscapeString(q.Text), html.EscapeString(q.Author))
}

// LocationHeader is the first line of every location-scoped message.
func LocationHeader(loc domain.Location) string {
	return fmt.Sprintf("📍 <b>%s</b>", html.EscapeString(loc.Name))
}

// LocationMenu prompts for a period once a location is chosen.
func LocationMenu(loc domain.Location, subscribed bool) string {
	status := "🔕 Напоминания выключены"
	if subscribed {
		status = "🔔 Напоминания включены"
	}
	return LocationHeader(loc) + "\nВыберите период:\n" + status
}

// NoTimes reports a location without a time table.
func NoTimes(loc domain.Location) string {
	return fmt.Sprintf("⏳ Времена намазов для <b>%s</b> пока не добавлены.", html.EscapeString(loc.Name))
}

// Today renders one day's prayer times for a location.
func Today(loc domain.Location, date time.Time, entry domain.DayEntry, ok bool) string {
	dateLabel := fmt.Sprintf("%02d %s", date.Day(), monthGenitive[date.Month()])
	if !ok {
		return LocationHeader(loc) + "\n" + fmt.Sprintf("❌ Нет данных на <b>%s</b>", dateLabel)
	}

	var b strings.Builder
	b.WriteString(LocationHeader(loc))
	b.WriteString("\n✨ <b>Времена намазов на сегодня</b>\n")
	fmt.Fprintf(&b, "📅 <i>%s</i>\n", dateLabel)
	for _, p := range domain.AllPrayers {
		fmt.Fprintf(&b, "%s <b>%s</b> — <code>%s</code>\n", prayerIcons[p], p.Label(), clockOrDash(entry, p))
	}
	b.WriteString("🕋 Пусть ваш намаз будет принят.")
	return b.String()
}

// MonthTable renders a compact monospaced table of a month's times.
func MonthTable(loc domain.Location, month time.Month, days map[int]domain.DayEntry) string {
	if len(days) == 0 {
		return LocationHeader(loc) + "\n" + fmt.Sprintf("❌ Нет данных за <b>%s</b>", MonthName(month))
	}

	var b strings.Builder
	b.WriteString(LocationHeader(loc))
	fmt.Fprintf(&b, "\n🗓️ <b>Намазы — %s</b>\n<pre>", MonthName(month))

	header := pad("Д", dayColumn)
	for _, h := range []string{"Фадж.", "Шур.", "Зухр", "Аср", "Магр.", "Иша"} {
		header += pad(h, timeColumn)
	}
	b.WriteString(strings.TrimRight(header, " "))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", dayColumn+timeColumn*len(domain.AllPrayers)+len(domain.AllPrayers)))
	b.WriteString("\n")

	for d := 1; d <= maxDays; d++ {
		row := pad(fmt.Sprint(d), dayColumn)
		if entry, ok := days[d]; ok {
			for _, p := range domain.AllPrayers {
				row += pad(clockOrDash(entry, p), timeColumn)
			}
		} else {
			row += strings.Repeat(" ", (timeColumn+1)*len(domain.AllPrayers))
		}
		b.WriteString(strings.TrimRight(row, " "))
		b.WriteString("\n")
	}
	b.WriteString("</pre>")
	return b.String()
}

// ChooseMonth is the prompt above the month picker.
func ChooseMonth(loc domain.Location) string {
	return LocationHeader(loc) + "\n🗓️ Выберите месяц:"
}

// Reminder is the text of a scheduled prayer reminder.
func Reminder(loc domain.Location, prayer domain.Prayer, prayerAt time.Time, lead time.Duration) string {
	name := html.EscapeString(loc.Name)
	if name == "" {
		name = html.EscapeString(loc.ID)
	}

	minutes := int(lead / time.Minute)
	if minutes <= 0 {
		return fmt.Sprintf("🔔 Наступило время намаза <b>%s</b> — <code>%s</code>\n📍 %s",
			prayer.Label(), prayerAt.Format("15:04"), name)
	}

	return fmt.Sprintf("🔔 Через %d мин. — <b>%s</b> в <code>%s</code>\n📍 %s",
		minutes, prayer.Label(), prayerAt.Format("15:04"), name)
}

// SearchResults is the header above the search result keyboard.
func SearchResults(n int) string {
	return fmt.Sprintf("🔍 <b>Найдено %d:</b>", n)
}

// SearchEmpty reports a search without results.
func SearchEmpty(query string) string {
	return fmt.Sprintf("🔍 <b>По запросу «%s» ничего не найдено.</b>\nПроверьте написание или попробуйте другой вариант.",
		html.EscapeString(query))
}

// ListHeader titles the cities or districts list.
func ListHeader(kind domain.LocationKind, empty bool) string {
	switch {
	case kind == domain.LocationCity && empty:
		return "📭 Нет доступных городов."
	case kind == domain.LocationCity:
		return "<b>🌆 Города</b>"
	case empty:
		return "📭 Нет доступных районов."
	default:
		return "<b>🏘️ Районы</b>"
	}
}

// NeedLocation asks the user to pick a location first.
func NeedLocation() string {
	return "📍 Сначала выберите место через меню или введите название населённого пункта."
}

// Subscribed confirms that reminders were enabled.
func Subscribed(loc domain.Location, lead time.Duration) string {
	return fmt.Sprintf("🔔 Напоминания включены для <b>%s</b>.\nЯ напишу за %d мин. до каждого намаза.",
		html.EscapeString(loc.Name), int(lead/time.Minute))
}

// Unsubscribed confirms that reminders were disabled.
func Unsubscribed() string {
	return "🔕 Напоминания отключены."
}

// BroadcastUsage explains the /broadcast syntax.
func BroadcastUsage() string {
	return "📢 Введите команду:\n<code>/broadcast Ваше сообщение</code>"
}

// BroadcastDone summarises a finished broadcast.
func BroadcastDone(sent, failed, revoked int) string {
	return fmt.Sprintf("✅ Рассылка завершена!\n📬 Отправлено: <b>%d</b>\n❌ Ошибок: <b>%d</b>\n🚫 Заблокировали бота: <b>%d</b>",
		sent, failed, revoked)
}

// Forbidden is shown to non-admins invoking admin commands.
func Forbidden() string {
	return "❌ Доступ запрещён."
}

// NotFound reports an unknown location id.
func NotFound() string {
	return "❌ Место не найдено."
}

// Failure is the generic error reply.
func Failure() string {
	return "❌ Произошла ошибка. Попробуйте позже."
}

func clockOrDash(entry domain.DayEntry, p domain.Prayer) string {
	if c, ok := entry.Time(p); ok {
		return c.String()
	}
	return emptyClock
}

// pad left-aligns s in a column of width runes followed by one separator space.
func pad(s string, width int) string {
	return fmt.Sprintf("%-*s ", width, s)
}

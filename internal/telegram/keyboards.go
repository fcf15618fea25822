package telegram

import (
	"time"

	"github.com/go-telegram/bot/models"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/render"
)

// Callback data understood by the router. Location-scoped actions carry the
// location id as a suffix.
const (
	cbMain       = "cmd_start"
	cbCatalogue  = "cmd_cities_areas"
	cbCities     = "cmd_cities"
	cbDistricts  = "cmd_areas"
	cbQuote      = "cmd_quote"
	cbAbout      = "cmd_about"
	cbStats      = "cmd_stats"
	cbAdminQuote = "admin_quotes"
	cbAdminCast  = "admin_broadcast"
	cbAdminStats = "admin_stats"

	prefixLocation    = "loc_"
	prefixDay         = "day_"
	prefixMonth       = "month_"
	prefixYear        = "year_"
	prefixSelectMonth = "select_month_"
	prefixBackToLoc   = "back_to_loc_"
	prefixSubOn       = "sub_on_"
	prefixSubOff      = "sub_off_"
)

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func keyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func mainKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{button("🕌 Города и районы", cbCatalogue)},
		[]models.InlineKeyboardButton{button("📘 Хадис дня", cbQuote)},
		[]models.InlineKeyboardButton{
			button("📊 Статистика", cbStats),
			button("ℹ️ О боте", cbAbout),
		},
	)
}

func backKeyboard(data string) *models.InlineKeyboardMarkup {
	return keyboard([]models.InlineKeyboardButton{button("⬅️ Назад", data)})
}

func catalogueKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{
			button("🏙️ Города", cbCities),
			button("🏘️ Районы", cbDistricts),
		},
		[]models.InlineKeyboardButton{button("⬅️ Назад", cbMain)},
	)
}

// locationsKeyboard lays locations out two per row.
func locationsKeyboard(locations []domain.Location, back string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(locations)/2+2)
	row := make([]models.InlineKeyboardButton, 0, 2)
	for _, loc := range locations {
		row = append(row, button(loc.Icon()+" "+loc.Name, prefixLocation+loc.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = make([]models.InlineKeyboardButton, 0, 2)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []models.InlineKeyboardButton{button("⬅️ Назад", back)})

	return keyboard(rows...)
}

func locationKeyboard(loc domain.Location, subscribed bool) *models.InlineKeyboardMarkup {
	toggle := button("🔔 Включить напоминания", prefixSubOn+loc.ID)
	if subscribed {
		toggle = button("🔕 Отключить напоминания", prefixSubOff+loc.ID)
	}

	return keyboard(
		[]models.InlineKeyboardButton{
			button("📅 Сегодня", prefixDay+loc.ID),
			button("🗓️ Месяц", prefixMonth+loc.ID),
			button("📆 Год", prefixYear+loc.ID),
		},
		[]models.InlineKeyboardButton{toggle},
		[]models.InlineKeyboardButton{button("⬅️ Назад", cbCatalogue)},
	)
}

// monthsKeyboard offers the twelve months three per row. Callbacks carry the
// Russian month name, e.g. "select_month_Март_7".
func monthsKeyboard(loc domain.Location) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, 5)
	for m := time.January; m <= time.December; m += 3 {
		row := make([]models.InlineKeyboardButton, 0, 3)
		for i := time.Month(0); i < 3; i++ {
			name := render.MonthName(m + i)
			row = append(row, button(name, prefixSelectMonth+name+"_"+loc.ID))
		}
		rows = append(rows, row)
	}
	rows = append(rows, []models.InlineKeyboardButton{button("⬅️ Назад", prefixBackToLoc+loc.ID)})

	return keyboard(rows...)
}

func quoteKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{button("🔄 Ещё хадис", cbQuote)},
		[]models.InlineKeyboardButton{button("⬅️ Назад", cbMain)},
	)
}

func adminKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{button("📚 Хадисы", cbAdminQuote)},
		[]models.InlineKeyboardButton{button("📢 Рассылка", cbAdminCast)},
		[]models.InlineKeyboardButton{button("📊 Статистика", cbAdminStats)},
	)
}

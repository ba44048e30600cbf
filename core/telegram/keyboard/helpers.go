package keyboard

import tele "gopkg.in/telebot.v4"

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a resized reply keyboard from rows of button labels.
// Empty rows are skipped; nil is returned when no button remains.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	if len(keyboard) == 0 {
		return nil
	}
	markup.Reply(keyboard...)
	return markup
}

// Labels returns the button texts of a reply keyboard row by row.
func Labels(markup *tele.ReplyMarkup) [][]string {
	if markup == nil {
		return nil
	}
	out := make([][]string, 0, len(markup.ReplyKeyboard))
	for _, row := range markup.ReplyKeyboard {
		labels := make([]string, 0, len(row))
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
		out = append(out, labels)
	}
	return out
}

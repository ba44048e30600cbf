package engine

// Fixed button labels. Incoming text is matched against them exactly.
const (
	ContactButton      = "📞 Связаться"
	BackFromCategory   = "← Назад в главное меню"
	BackFromProduct    = "← В главное меню"
	OrderButtonPrefix  = "🛒 Заказать сейчас "
	defaultDisplayName = "Друг"
)

const (
	textMainMenu      = "🍞 *Главное меню*"
	textWelcome       = "👋 Привет, %s!\n🍞 *Витрина свежей выпечки!*\nВыберите категорию:"
	textFallback      = "👋 Привет, %s!\nВыберите категорию:"
	textNotUnderstood = "❓ Не понял. Выберите из меню:"
	textContact       = "📞 *Свяжитесь с нами:*\n%s\n\n🍞 Выберите категорию:"
	textContactLink   = "[Написать администратору](tg://user?id=%d)"
	textNoContact     = "Администратор пока недоступен."
	textCategory      = "%s *%s*\nВыберите товар:"
	textCategoryItem  = "• %s: %d₽"
	textCategoryNone  = "Пока пусто, загляните позже."
	textProduct       = "*%s*\n\n%s\n📦 Вес: 300-1000г\n💰 %d₽\n⭐ Свежая выпечка каждый день!"
	textOrderPlaced   = "✅ *Заказ принят!*\n\n🍰 *%s*\n📱 Менеджер свяжется в течение 30 минут\nСпасибо за заказ! ❤️"
)

var greetings = []string{"привет", "hello", "меню", "начать", "/start"}

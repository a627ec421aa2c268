// Package i18n holds the user-facing strings shown by the front-end.
package i18n

const (
	InvalidCredentials = "Неверный email или пароль"
	EmailNotConfirmed  = "Email не подтвержден"

	LoginSuccess     = "Вы успешно вошли в систему"
	LoginFailed      = "Ошибка входа"
	RegisterSuccess  = "Регистрация успешна! Проверьте почту для подтверждения email"
	RegisterFailed   = "Ошибка регистрации"
	LogoutSuccess    = "Вы вышли из системы"
	LogoutFailed     = "Ошибка при выходе из системы"
	WelcomeBack      = "Добро пожаловать!"
	ProfileLoadError = "Не удалось загрузить профиль"
	ProfileMissing   = "Профиль пользователя не найден"
	ProfileUpdated   = "Профиль обновлен"
	ProfileUpdateErr = "Не удалось обновить профиль"
	ConnectionFailed = "Не удалось подключиться к серверу. Проверьте подключение к интернету"
	InitTimeout      = "Превышено время ожидания подключения. Попробуйте обновить страницу"
	SessionExpired   = "Сессия истекла. Пожалуйста, войдите снова"
	SessionError     = "Ошибка при проверке сессии"
	Forbidden        = "Недостаточно прав"
	Unexpected       = "Произошла непредвиденная ошибка"
)

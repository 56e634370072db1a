package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

// ProfileIDContextKey - ключ, по которому auth-middleware кладёт id профиля в context
const ProfileIDContextKey = contextKey("profile_id")

// LocaleContextKey - ключ локали запроса (заголовок Accept-Language, по умолчанию ru)
const LocaleContextKey = contextKey("locale")

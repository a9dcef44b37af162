package contextkeys

// ContextKey - типизированный ключ для context, чтобы избежать коллизий строк
type ContextKey string

const (
	// DBContextKey - под этим ключом middleware кладет *gorm.DB (пул или транзакцию)
	DBContextKey ContextKey = "db"
)

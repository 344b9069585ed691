package models

// Category тег категории из закрытого словаря.
type Category string

const (
	CategoryOTT      Category = "OTT"
	CategoryWork     Category = "Work"
	CategoryMusic    Category = "Music"
	CategoryShopping Category = "Shopping"
	CategoryCloud    Category = "Cloud"
	CategoryEtc      Category = "Etc"
)

// Categories перечисляет допустимые категории в порядке отображения.
func Categories() []Category {
	return []Category{
		CategoryOTT,
		CategoryWork,
		CategoryMusic,
		CategoryShopping,
		CategoryCloud,
		CategoryEtc,
	}
}

// Valid сообщает, входит ли категория в словарь.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

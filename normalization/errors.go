package normalization

import "errors"

var (
	// ErrFileTooLarge файл превышает допустимый размер
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrEmptyFile файл пустой или не содержит строк данных
	ErrEmptyFile = errors.New("file is empty")
	// ErrNoProductNameColumn нет ни одной колонки с названием продукта
	ErrNoProductNameColumn = errors.New("no product name column")
	// ErrNoData после фильтрации не осталось записей
	ErrNoData = errors.New("no data")
)

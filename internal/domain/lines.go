package domain

import "github.com/samber/lo"

// LineChanges: результат сверки сохранённых строк заказа с коллекцией в памяти.
type LineChanges struct {
	Insert []Line
	Update []Line
	Delete []Line
}

// Empty сообщает, что сохранять нечего.
func (c LineChanges) Empty() bool {
	return len(c.Insert) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}

// DiffLines сравнивает сохранённые строки заказа с входящей коллекцией.
//
// Строки с ID == 0 вставляются, известные строки с изменённым количеством
// обновляются, сохранённые строки, отсутствующие во входящей коллекции,
// удаляются. Дубликат товара даёт *DuplicateLineError, и никаких изменений
// при этом не возвращается.
func DiffLines(orderID int64, stored, incoming []Line) (LineChanges, error) {
	seenProducts := make(map[int64]struct{}, len(incoming))
	for _, line := range incoming {
		if _, dup := seenProducts[line.ProductRef]; dup {
			return LineChanges{}, &DuplicateLineError{OrderID: orderID, ProductRef: line.ProductRef}
		}
		seenProducts[line.ProductRef] = struct{}{}
	}

	storedByID := lo.KeyBy(stored, func(l Line) int64 { return l.ID })
	var changes LineChanges

	for _, line := range incoming {
		if line.ID == 0 {
			line.OrderID = orderID
			changes.Insert = append(changes.Insert, line)
			continue
		}

		current, ok := storedByID[line.ID]
		if !ok {
			return LineChanges{}, ErrLineNotFound
		}
		if current.ProductRef != line.ProductRef {
			return LineChanges{}, ErrLineImmutable
		}
		if current.Quantity != line.Quantity {
			changes.Update = append(changes.Update, line)
		}
	}

	keptIDs := lo.SliceToMap(
		lo.Filter(incoming, func(l Line, _ int) bool { return l.ID != 0 }),
		func(l Line) (int64, struct{}) { return l.ID, struct{}{} },
	)
	changes.Delete = lo.Filter(stored, func(l Line, _ int) bool {
		_, kept := keptIDs[l.ID]
		return !kept
	})

	return changes, nil
}

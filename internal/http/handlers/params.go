package handlers

import (
	"fmt"
	"strconv"
)

func positiveInt64(raw, name string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return value, nil
}

// parseQuantity разбирает количество; знак проверяет доменный сервис.
func parseQuantity(raw string) (int32, error) {
	if raw == "" {
		return 0, fmt.Errorf("quantity is required")
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("quantity must be an integer")
	}
	return int32(value), nil
}

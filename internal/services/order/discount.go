package order

import (
	"moa_backend/internal/config"
	"moa_backend/internal/models"
)

// SplitDiscount раскладывает милевую скидку по строкам заказа.
//
// Скидка вычитается из брутто-стоимости целиком, а цены строк остаются
// целыми, поэтому позиция расщепляется на ценовые уровни: часть единиц
// дороже на одну милю (100 минорных единиц), остаток суммы, не кратный
// миле, доносит одна строка из одной единицы. Инвариант: суммарная
// стоимость строк равна брутто минус скидка копейка в копейку, суммарное
// количество равно исходному.
func SplitDiscount(product models.ProductLine, mileCount int64) []models.ProductLine {
	quantity := product.Quantity
	discounted := product.Price*quantity - mileCount*config.MilePrice

	if mileCount == 0 {
		return []models.ProductLine{product}
	}

	line := func(price, qty int64) models.ProductLine {
		return models.ProductLine{
			ProductID: product.ProductID,
			Name:      product.Name,
			Price:     price,
			Quantity:  qty,
		}
	}

	// Остаток меньше одной мили не делится между единицами без дробных
	// цен, его целиком забирает одна единица.
	carry := discounted % config.MilePrice
	tiered := discounted - carry

	base := tiered / config.MilePrice / quantity * config.MilePrice
	upper := tiered/config.MilePrice%quantity // единиц по цене base+100

	var lines []models.ProductLine
	switch {
	case carry == 0 && upper == 0:
		lines = append(lines, line(base, quantity))
	case carry == 0:
		lines = append(lines,
			line(base+config.MilePrice, upper),
			line(base, quantity-upper))
	case upper == 0:
		lines = append(lines, line(base+carry, 1))
		if quantity > 1 {
			lines = append(lines, line(base, quantity-1))
		}
	default:
		lines = append(lines, line(base+config.MilePrice+carry, 1))
		if upper > 1 {
			lines = append(lines, line(base+config.MilePrice, upper-1))
		}
		lines = append(lines, line(base, quantity-upper))
	}
	return lines
}

// TotalAmount возвращает суммарную стоимость строк в минорных единицах.
func TotalAmount(lines []models.ProductLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Price * line.Quantity
	}
	return total
}

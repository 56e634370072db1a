package receipts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"moa_backend/internal/email"
	"moa_backend/internal/models"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`
<h2>Чек по заказу {{.Number}}</h2>
<table border="0" cellpadding="4">
  <tr><th align="left">Товар</th><th align="right">Цена</th><th align="right">Кол-во</th></tr>
  {{range .Lines}}
  <tr>
    <td>{{.Name}}</td>
    <td align="right">{{printf "%.2f" .Price}}</td>
    <td align="right">{{.Quantity}}</td>
  </tr>
  {{end}}
</table>
<p>Оплачено деньгами: {{printf "%.2f" .Amount}}</p>
{{if .MileCount}}<p>Списано миль: {{.MileCount}}</p>{{end}}
{{if .BonusMileCount}}<p>Начислено миль: {{.BonusMileCount}}</p>{{end}}
`))

type receiptLine struct {
	Name     string
	Price    float64
	Quantity int64
}

type receiptData struct {
	Number         string
	Lines          []receiptLine
	Amount         float64
	MileCount      int64
	BonusMileCount int64
}

// Service отправляет покупателю чек на почту.
type Service struct {
	provider email.Provider
}

func NewService(provider email.Provider) *Service {
	return &Service{provider: provider}
}

// SendReceipt рендерит чек по заказу и отправляет его на адрес покупателя.
func (s *Service) SendReceipt(ctx context.Context, to string, order *models.Order, lines []models.ProductLine, bonusMileCount int64) error {
	if to == "" {
		return fmt.Errorf("receipt recipient is empty")
	}

	data := receiptData{
		Number:         order.Number,
		Amount:         float64(order.Amount) / 100,
		MileCount:      order.MileCount,
		BonusMileCount: bonusMileCount,
	}
	for _, line := range lines {
		data.Lines = append(data.Lines, receiptLine{
			Name:     line.Name,
			Price:    float64(line.Price) / 100,
			Quantity: line.Quantity,
		})
	}

	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}

	return s.provider.Send(&email.Email{
		To:       []string{to},
		Subject:  fmt.Sprintf("Чек по заказу %s", order.Number),
		HTMLBody: body.String(),
	})
}

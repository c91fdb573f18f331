package service

import (
	"cardhub/dto/model"
	"cardhub/helper"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// GenerateCardExcel exports cards to a single-sheet workbook.
func GenerateCardExcel(cards []model.Card) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Cards"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headers := []string{"Card ID", "Nickname", "Limit", "Card Number", "CVC", "Exp", "Billing Address", "Status", "Activated At", "Expires At", "Refund", "Used", "Sold", "Created"}
	for i, header := range headers {
		f.SetCellValue(sheetName, getColumnName(i+1)+"1", header)
	}

	for rowIndex, card := range cards {
		row := strconv.Itoa(rowIndex + 2)
		values := []interface{}{
			card.Code,
			card.Nickname,
			card.Limit.InexactFloat64(),
			card.CardNumber,
			card.CVC,
			card.ExpDate,
			card.BillingAddress,
			card.Status,
			formatOptional(card.ActivationTime),
			formatOptional(card.ExpiresAt),
			yesNo(card.RefundRequested),
			yesNo(card.IsUsed),
			yesNo(card.IsSold),
			helper.ToReference(card.CreatedAt).Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			f.SetCellValue(sheetName, getColumnName(col+1)+row, value)
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// getColumnName converts a 1-based index to a column letter.
func getColumnName(index int) string {
	columnName := ""
	for index > 0 {
		index--
		columnName = string(rune('A'+(index%26))) + columnName
		index /= 26
	}
	return columnName
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return helper.ToReference(*t).Format("2006-01-02 15:04:05")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

package services

import (
	"bytes"
	"fmt"
	"power-token-exchange/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Transactions"

var exportHeader = []interface{}{
	"ID", "Date", "Type", "Token", "Token ID", "Amount", "Price (ETH)", "Status", "Counterparty", "Tx Hash",
}

// ExportTransactionsXLSX renders the transaction history as a workbook.
func ExportTransactionsXLSX(txs []models.Transaction) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	for i, tx := range txs {
		row := []interface{}{
			tx.ID,
			tx.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(tx.Type),
			string(tx.TokenKind),
			tx.TokenID,
			tx.Amount,
			tx.Price,
			string(tx.Status),
			tx.Counterparty,
			tx.TxHash,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

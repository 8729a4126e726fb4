package document

import (
	"strings"

	"github.com/shopspring/decimal"
)

// projection holds the per-kind field layout.
type projection struct {
	orderRef   string
	dateHeader string
	item       func(index int, fields Fields) Item
}

var projections = map[Kind]projection{
	KindInvoice: {
		orderRef:   "orderReference",
		dateHeader: "creationTime",
		item:       projectInvoiceItem,
	},
	KindPurchaseOrder: {
		orderRef:   "orderNumber",
		dateHeader: "creationTime",
		item:       projectPurchaseOrderItem,
	},
	KindDeliveryReceipt: {
		dateHeader: "date",
		item:       projectDeliveryReceiptItem,
	},
}

// Item field names per kind. The deviation engine reads raw fields through
// these as well.
const (
	FieldLineNumber = "lineNumber"

	FieldInvoiceUnitPrice = "purchaseReceiptDataUnitAmount"
	FieldInvoiceQuantity  = "purchaseReceiptDataQuantity"
	FieldInvoiceArticle   = "purchaseReceiptDatainventory"
	FieldInvoiceAmount    = "debit"

	FieldPOUnitPrice = "unitAmount"
	FieldPOQuantity  = "quantityToInvoice"

	FieldReceiptUnitPrice = "unitAmount"
	FieldReceiptQuantity  = "quantity"
	FieldReceiptAmount    = "amount"

	FieldInventory           = "inventory"
	FieldArticleNumber       = "articleNumber"
	FieldPurchaseOrderNumber = "purchaseOrderNumber"
	FieldPurchaseOrderLine   = "purchaseOrderLineNumber"
	FieldOrderLineReference  = "orderLineReference"
)

// QuantityField returns the field carrying the item quantity for a kind.
func QuantityField(k Kind) string {
	switch k {
	case KindInvoice:
		return FieldInvoiceQuantity
	case KindPurchaseOrder:
		return FieldPOQuantity
	case KindDeliveryReceipt:
		return FieldReceiptQuantity
	}

	return ""
}

// UnitPriceField returns the field carrying the unit price for a kind.
func UnitPriceField(k Kind) string {
	switch k {
	case KindInvoice:
		return FieldInvoiceUnitPrice
	case KindPurchaseOrder:
		return FieldPOUnitPrice
	case KindDeliveryReceipt:
		return FieldReceiptUnitPrice
	}

	return ""
}

func baseItem(index int, kind Kind, fields Fields, descNames []string, articleNames []string) Item {
	item := Item{
		Index:  index,
		Kind:   kind,
		Fields: fields,
	}

	item.LineNumber, _ = fields.Get(FieldLineNumber)
	item.LineNumber = strings.TrimSpace(item.LineNumber)

	desc, _ := fields.First(descNames...)
	item.Description = NormalizeDescription(desc)

	item.RawArticleNumber, _ = fields.First(articleNames...)
	item.ArticleNumber = NormalizeArticleNumber(item.RawArticleNumber)

	po, _ := fields.Get(FieldPurchaseOrderNumber)
	item.PurchaseOrderNumber = strings.TrimSpace(po)

	return item
}

func projectInvoiceItem(index int, fields Fields) Item {
	item := baseItem(index, KindInvoice, fields,
		[]string{"text", "description"},
		[]string{FieldInvoiceArticle, FieldInventory, FieldArticleNumber},
	)

	item.UnitPrice = nullAmount(fields, FieldInvoiceUnitPrice, "unit-price")
	item.Quantity = nullAmount(fields, FieldInvoiceQuantity, "quantity")
	item.LineAmount = nullAmount(fields, FieldInvoiceAmount)

	ref, _ := fields.Get(FieldOrderLineReference)
	item.PurchaseOrderLine = strings.TrimSpace(ref)

	return item
}

func projectPurchaseOrderItem(index int, fields Fields) Item {
	item := baseItem(index, KindPurchaseOrder, fields,
		[]string{"description", "text"},
		[]string{FieldInventory, FieldArticleNumber},
	)

	item.UnitPrice = nullAmount(fields, FieldPOUnitPrice)
	item.Quantity = nullAmount(fields, FieldPOQuantity)

	if item.UnitPrice.Valid && item.Quantity.Valid {
		item.LineAmount = decimal.NewNullDecimal(item.Quantity.Decimal.Mul(item.UnitPrice.Decimal))
	}

	item.PurchaseOrderLine = item.LineNumber

	return item
}

func projectDeliveryReceiptItem(index int, fields Fields) Item {
	item := baseItem(index, KindDeliveryReceipt, fields,
		[]string{"inventoryDescription", "description", "text"},
		[]string{"inventoryNumber", FieldInventory, FieldArticleNumber},
	)

	item.UnitPrice = nullAmount(fields, FieldReceiptUnitPrice)
	item.Quantity = nullAmount(fields, FieldReceiptQuantity)
	item.LineAmount = nullAmount(fields, FieldReceiptAmount)

	ref, _ := fields.Get(FieldPurchaseOrderLine)
	item.PurchaseOrderLine = strings.TrimSpace(ref)

	return item
}

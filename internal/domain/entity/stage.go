package entity

// Stage is a helpdesk stage a ticket can sit in
type Stage struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

// StageDefinition describes a stage the pipeline requires
type StageDefinition struct {
	Code     string
	Name     string
	Sequence int
}

// RequiredStages lists every stage the pipeline reads or writes, in display order.
var RequiredStages = []StageDefinition{
	{Code: StageNewInvoices, Name: "Facturas Nuevas", Sequence: 1},
	{Code: StageNoPDF, Name: "Tickets sin PDF", Sequence: 2},
	{Code: StageNoValidPO, Name: "PDF sin PO#", Sequence: 3},
	{Code: StagePOInexistent, Name: "PO# Inexistente", Sequence: 4},
	{Code: StageInvoiceLinked, Name: "Factura Vinculada", Sequence: 5},
	{Code: StageDuplicateFound, Name: "Factura Duplicada", Sequence: 6},
	{Code: StageCreationFailed, Name: "Error al crear factura", Sequence: 7},
}

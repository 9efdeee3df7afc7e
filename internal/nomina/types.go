package nomina

// Empresa identifies the employer.
type Empresa struct {
	RazonSocial *string `json:"razon_social"`
	CIF         *string `json:"cif"`
}

// Trabajador identifies the employee.
type Trabajador struct {
	Nombre *string `json:"nombre"`
	DNI    *string `json:"dni"`
}

// Periodo is the accrual period. Desde and Hasta are YYYY-MM-DD; when set,
// Desde is always the first day of Hasta's month.
type Periodo struct {
	Desde *string `json:"desde"`
	Hasta *string `json:"hasta"`
	Dias  int     `json:"dias"`
}

type DevengoItem struct {
	Concepto string `json:"concepto"`
	Importe  Amount `json:"importe"`
}

type DeduccionItem struct {
	Concepto string `json:"concepto"`
	Importe  Amount `json:"importe"`
}

// AportacionEmpresaItem is one employer social-security contribution line.
// Importe is Base*Tipo/100 unless a printed value within tolerance replaced it.
type AportacionEmpresaItem struct {
	Concepto string `json:"concepto"`
	Base     Amount `json:"base"`
	Tipo     Amount `json:"tipo"`
	Importe  Amount `json:"importe"`
}

type Totales struct {
	DevengoTotal           Amount `json:"devengo_total"`
	DeduccionTotal         Amount `json:"deduccion_total"`
	AportacionEmpresaTotal Amount `json:"aportacion_empresa_total"`
	LiquidoAPercibir       Amount `json:"liquido_a_percibir"`
}

// Result is the structured reading of one payslip page.
type Result struct {
	Empresa                Empresa                 `json:"empresa"`
	Trabajador             Trabajador              `json:"trabajador"`
	Periodo                Periodo                 `json:"periodo"`
	DevengoItems           []DevengoItem           `json:"devengo_items"`
	DeduccionItems         []DeduccionItem         `json:"deduccion_items"`
	AportacionEmpresaItems []AportacionEmpresaItem `json:"aportacion_empresa_items"`
	Totales                Totales                 `json:"totales"`
	Warnings               []string                `json:"warnings"`
}

// Header groups the identity and period fields read from the top of the page.
type Header struct {
	Empresa    Empresa
	Trabajador Trabajador
	Periodo    Periodo
}

func strPtr(s string) *string { return &s }

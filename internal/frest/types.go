package frest

// Request and response shapes of the Frest bot API. Field names stay in
// Spanish to match the wire format.

// Order types.
const (
	TipoPedidoDespachoDomicilio = 1
	TipoPedidoRetiroTienda      = 2
	TipoPedidoRetiroExpress     = 3
)

// Payment methods.
const (
	FormaPagoWebpay   = "webpay"
	FormaPagoFpay     = "fpay"
	FormaPagoOneclick = "oneclick"
	FormaPagoEfectivo = "efectivo"
)

// BuscarUsuarioRequest looks up a user by phone.
type BuscarUsuarioRequest struct {
	Telefono string `json:"telefono"`
}

// DireccionUsuario is a stored delivery address.
type DireccionUsuario struct {
	ID                int64   `json:"id"`
	DireccionCompleta string  `json:"direccion_completa"`
	Calle             string  `json:"calle"`
	Numero            string  `json:"numero"`
	Depto             *string `json:"depto"`
	Comuna            string  `json:"comuna"`
	Region            string  `json:"region"`
	Coordenadas       string  `json:"coordenadas,omitempty"`
	Observaciones     *string `json:"observaciones"`
	ZonaID            int64   `json:"zona_id"`
}

// UsuarioEncontrado is a registered Frest user.
type UsuarioEncontrado struct {
	UserID          int64              `json:"user_id"`
	Nombre          string             `json:"nombre"`
	Paterno         string             `json:"paterno"`
	Materno         *string            `json:"materno"`
	NombreCompleto  string             `json:"nombre_completo"`
	Email           string             `json:"email"`
	Celular         string             `json:"celular"`
	Rut             string             `json:"rut,omitempty"`
	EmailVerificado bool               `json:"email_verificado"`
	CantidadPedidos int                `json:"cantidad_pedidos"`
	Saldo           float64            `json:"saldo"`
	Direcciones     []DireccionUsuario `json:"direcciones"`
}

// BuscarUsuarioResponse reports whether the phone maps to a user.
type BuscarUsuarioResponse struct {
	Encontrado bool               `json:"encontrado"`
	Data       *UsuarioEncontrado `json:"data,omitempty"`
	Mensaje    string             `json:"mensaje"`
}

// RegistrarUsuarioRequest registers a new user.
type RegistrarUsuarioRequest struct {
	Nombre         string `json:"nombre"`
	Paterno        string `json:"paterno"`
	Materno        string `json:"materno,omitempty"`
	Email          string `json:"email"`
	Rut            string `json:"rut,omitempty"`
	Celular        string `json:"celular"`
	AceptoTerminos bool   `json:"acepto_terminos"`
}

// RegistrarUsuarioResponse is the registration outcome.
type RegistrarUsuarioResponse struct {
	UserID                int64  `json:"user_id"`
	Email                 string `json:"email"`
	NombreCompleto        string `json:"nombre_completo"`
	RequiereVerificacion  bool   `json:"requiere_verificacion"`
	Mensaje               string `json:"mensaje"`
}

// CrearDireccionRequest creates a delivery address.
type CrearDireccionRequest struct {
	Calle                 string `json:"calle"`
	Numero                string `json:"numero"`
	Depto                 string `json:"depto,omitempty"`
	Comuna                string `json:"comuna"`
	Region                string `json:"region"`
	Coordenadas           string `json:"coordenadas,omitempty"`
	Observaciones         string `json:"observaciones,omitempty"`
	EstacionamientoVisita bool   `json:"estacionamiento_visita,omitempty"`
}

// CrearDireccionResponse is the address creation outcome.
type CrearDireccionResponse struct {
	DireccionID       int64  `json:"direccion_id"`
	ZonaID            int64  `json:"zona_id"`
	DireccionCompleta string `json:"direccion_completa"`
	EsValida          bool   `json:"es_valida"`
	Mensaje           string `json:"mensaje"`
}

// ConsultarProductosRequest queries products by name.
type ConsultarProductosRequest struct {
	Productos    []string `json:"productos"`
	BodegaID     int64    `json:"bodega_id,omitempty"`
	FechaVentana string   `json:"fecha_ventana,omitempty"`
}

// ProductoEncontrado is an available product with live price and stock.
type ProductoEncontrado struct {
	ProductoID      int64   `json:"producto_id"`
	Nombre          string  `json:"nombre"`
	Unidad          string  `json:"unidad"`
	Precio          float64 `json:"precio"`
	StockDisponible float64 `json:"stock_disponible"`
	Imagen          string  `json:"imagen,omitempty"`
	Disponible      bool    `json:"disponible"`
}

// ProductoAlternativa is a suggested replacement product.
type ProductoAlternativa struct {
	ProductoID      int64   `json:"producto_id"`
	Nombre          string  `json:"nombre"`
	Precio          float64 `json:"precio"`
	StockDisponible float64 `json:"stock_disponible"`
}

// ProductoNoEncontrado is a queried name without a match, with alternatives.
type ProductoNoEncontrado struct {
	Buscado      string                `json:"buscado"`
	Alternativas []ProductoAlternativa `json:"alternativas"`
}

// ResumenProductos summarizes a product query.
type ResumenProductos struct {
	TotalBuscados    int `json:"total_buscados"`
	TotalEncontrados int `json:"total_encontrados"`
	TotalDisponibles int `json:"total_disponibles"`
}

// ConsultarProductosResponse is the product query outcome.
type ConsultarProductosResponse struct {
	Productos     []ProductoEncontrado   `json:"productos"`
	NoEncontrados []ProductoNoEncontrado `json:"no_encontrados"`
	Resumen       ResumenProductos       `json:"resumen"`
}

// ItemPedido is one order line; prices are computed server-side.
type ItemPedido struct {
	ProductoID int64   `json:"producto_id"`
	Cantidad   float64 `json:"cantidad"`
}

// CrearPedidoRequest creates a complete order.
type CrearPedidoRequest struct {
	UserID          int64        `json:"user_id"`
	DireccionID     int64        `json:"direccion_id"`
	VentanaID       int64        `json:"ventana_id"`
	BodegaID        int64        `json:"bodega_id"`
	TipoPedidoID    int          `json:"tipo_pedido_id"`
	FormaPago       string       `json:"forma_pago"`
	Items           []ItemPedido `json:"items"`
	Observaciones   string       `json:"observaciones,omitempty"`
	CodigoDescuento string       `json:"codigo_descuento,omitempty"`
	MedioPagoID     int64        `json:"medio_pago_id,omitempty"`
}

// CrearPedidoResponse is the order creation outcome with payment link.
type CrearPedidoResponse struct {
	PedidoID     int64   `json:"pedido_id"`
	CodigoPedido string  `json:"codigo_pedido"`
	Total        float64 `json:"total"`
	Subtotal     float64 `json:"subtotal"`
	Despacho     float64 `json:"despacho"`
	Descuento    float64 `json:"descuento"`
	FormaPago    string  `json:"forma_pago"`
	PaymentLink  string  `json:"payment_link"`
	Estado       string  `json:"estado"`
	EstadoPago   string  `json:"estado_pago"`
	ExpiresAt    string  `json:"expires_at"`
	Mensaje      string  `json:"mensaje"`
}

// TrackingInfo is delivery tracking metadata.
type TrackingInfo struct {
	Repartidor string `json:"repartidor,omitempty"`
	RutaID     int64  `json:"ruta_id,omitempty"`
	EstadoRuta string `json:"estado_ruta,omitempty"`
}

// EstadoPedidoResponse is the current order status.
type EstadoPedidoResponse struct {
	PedidoID      int64         `json:"pedido_id"`
	Codigo        string        `json:"codigo"`
	Estado        string        `json:"estado"`
	EstadoPago    string        `json:"estado_pago"`
	Total         float64       `json:"total"`
	FechaCreacion string        `json:"fecha_creacion"`
	FechaVentana  string        `json:"fecha_ventana"`
	TrackingInfo  *TrackingInfo `json:"tracking_info,omitempty"`
}

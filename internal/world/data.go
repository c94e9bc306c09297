package world

import "github.com/flybeeper/radarsim/internal/models"

// Route базовый маршрут, в граф попадает в обе стороны
type Route struct {
	From string
	To   string
}

var defaultAirports = []models.Airport{
	{Code: "LHR", Name: "London Heathrow", Position: models.Point{Lat: 51.47, Lng: -0.45}},
	{Code: "CDG", Name: "Paris C. de Gaulle", Position: models.Point{Lat: 49.01, Lng: 2.55}},
	{Code: "FRA", Name: "Frankfurt", Position: models.Point{Lat: 50.03, Lng: 8.57}},
	{Code: "AMS", Name: "Amsterdam Schiphol", Position: models.Point{Lat: 52.31, Lng: 4.76}},
	{Code: "MAD", Name: "Madrid Barajas", Position: models.Point{Lat: 40.49, Lng: -3.56}},
	{Code: "FCO", Name: "Rome Fiumicino", Position: models.Point{Lat: 41.80, Lng: 12.23}},
	{Code: "BCN", Name: "Barcelona El Prat", Position: models.Point{Lat: 41.29, Lng: 2.07}},
	{Code: "MUC", Name: "Munich", Position: models.Point{Lat: 48.35, Lng: 11.78}},
	{Code: "IST", Name: "Istanbul", Position: models.Point{Lat: 41.27, Lng: 28.75}},
	{Code: "DUB", Name: "Dublin", Position: models.Point{Lat: 53.42, Lng: -6.24}},
	{Code: "ZRH", Name: "Zurich", Position: models.Point{Lat: 47.46, Lng: 8.54}},
	{Code: "CPH", Name: "Copenhagen", Position: models.Point{Lat: 55.61, Lng: 12.65}},
	{Code: "OSL", Name: "Oslo Gardermoen", Position: models.Point{Lat: 60.19, Lng: 11.10}},
	{Code: "ARN", Name: "Stockholm Arlanda", Position: models.Point{Lat: 59.65, Lng: 17.91}},
	{Code: "HEL", Name: "Helsinki Vantaa", Position: models.Point{Lat: 60.31, Lng: 24.96}},
	{Code: "WAW", Name: "Warsaw Chopin", Position: models.Point{Lat: 52.16, Lng: 20.96}},
	{Code: "PRG", Name: "Prague", Position: models.Point{Lat: 50.10, Lng: 14.26}},
	{Code: "VIE", Name: "Vienna", Position: models.Point{Lat: 48.11, Lng: 16.56}},
	{Code: "BUD", Name: "Budapest", Position: models.Point{Lat: 47.43, Lng: 19.26}},
	{Code: "ATH", Name: "Athens", Position: models.Point{Lat: 37.93, Lng: 23.94}},
	{Code: "LIS", Name: "Lisbon", Position: models.Point{Lat: 38.77, Lng: -9.13}},
	{Code: "BRU", Name: "Brussels", Position: models.Point{Lat: 50.90, Lng: 4.48}},
	{Code: "BER", Name: "Berlin Brandenburg", Position: models.Point{Lat: 52.36, Lng: 13.50}},
	{Code: "MXP", Name: "Milan Malpensa", Position: models.Point{Lat: 45.63, Lng: 8.72}},
}

var defaultRoutes = []Route{
	{"LHR", "CDG"}, {"LHR", "FRA"}, {"LHR", "AMS"}, {"LHR", "MAD"}, {"LHR", "FCO"},
	{"CDG", "FRA"}, {"CDG", "FCO"}, {"CDG", "BCN"},
	{"FRA", "MAD"}, {"FRA", "IST"},
	{"AMS", "BCN"}, {"AMS", "CPH"},
	{"MAD", "LIS"}, {"MAD", "FCO"},
	{"FCO", "ATH"},
	{"MUC", "VIE"}, {"MUC", "ZRH"},
	{"IST", "ATH"},
	{"DUB", "LHR"},
	{"ZRH", "FRA"},
	{"CPH", "OSL"},
	{"OSL", "ARN"},
	{"ARN", "HEL"},
	{"WAW", "FRA"},
	{"PRG", "FRA"},
	{"VIE", "BUD"},
	{"BRU", "AMS"},
	{"BER", "WAW"}, {"BER", "MUC"},
	{"MXP", "ZRH"}, {"MXP", "FCO"},
	{"LHR", "BER"},
	{"CDG", "MXP"},
}

// Веса хабов: маршрут получает произведение весов концов
var hubTiers = map[string]float64{
	"LHR": 3, "CDG": 3, "FRA": 3, "AMS": 3,
	"MAD": 2, "FCO": 2, "MUC": 2, "IST": 2, "BCN": 2, "ZRH": 2,
}

var airlineCodes = []string{
	"BA", "AF", "LH", "KL", "IB", "AZ", "TK", "EI", "LX", "SK",
	"AY", "LO", "OK", "OS", "A3", "TP", "SN", "FR", "U2", "W6",
}

// DefaultAirports возвращает копию встроенного реестра аэропортов
func DefaultAirports() []models.Airport {
	out := make([]models.Airport, len(defaultAirports))
	copy(out, defaultAirports)
	return out
}

// DefaultRoutes возвращает копию встроенного списка базовых маршрутов
func DefaultRoutes() []Route {
	out := make([]Route, len(defaultRoutes))
	copy(out, defaultRoutes)
	return out
}

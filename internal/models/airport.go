package models

// Airport аэропорт из статического реестра.
// IsCovered пересчитывается при каждом изменении активности радаров.
type Airport struct {
	Code      string `json:"code" msgpack:"code"`
	Name      string `json:"name" msgpack:"name"`
	Position  Point  `json:"position" msgpack:"position"`
	IsCovered bool   `json:"is_covered" msgpack:"is_covered"`
}

// FlightPlan шаблон рейса между двумя аэропортами
type FlightPlan struct {
	From   string  `json:"from" msgpack:"from"`
	To     string  `json:"to" msgpack:"to"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// RouteKey возвращает ключ маршрута вида "FROM-TO"
func (f FlightPlan) RouteKey() string {
	return RouteKey(f.From, f.To)
}

// RouteKey возвращает ключ маршрута вида "FROM-TO"
func RouteKey(from, to string) string {
	return from + "-" + to
}

package parser

const unknownActivityType = "Unknown"

var suuntoDeviceModels = map[string]string{
	"Amsterdam": "Spartan Ultra",
	"Brighton":  "Spartan Sport",
	"Cairo":     "Spartan WHR",
	"Forssa":    "Spartan Trainer",
	"Gdansk":    "Spartan WHR Baro",
	"Helsinki":  "3 Fitness",
}

var suuntoActivityTypes = map[int]string{
	3:  "Running",
	23: "Weight Training",
	82: "Trail Running",
}

// DeviceModel resolves a Suunto device codename. Unknown codenames pass through.
func DeviceModel(codename string) string {
	if name, ok := suuntoDeviceModels[codename]; ok {
		return name
	}
	return codename
}

// ActivityType resolves a Suunto numeric activity id.
func ActivityType(id int) string {
	if name, ok := suuntoActivityTypes[id]; ok {
		return name
	}
	return unknownActivityType
}

// Package category translates detector-native class labels into the
// canonical categories understood by the price regression service, and
// derives the static risk level for a detection.
package category

import "sort"

// ClassNames lists the detector's native labels, indexed by model class ID.
var ClassNames = []string{
	"Air-Conditioner", "Bar-Phone", "Battery", "Blood-Pressure-Monitor",
	"Boiler", "CRT-Monitor", "CRT-TV", "Calculator", "Camera",
	"Ceiling-Fan", "Christmas-Lights", "Clothes-Iron", "Coffee-Machine",
	"Compact-Fluorescent-Lamps", "Computer-Keyboard", "Computer-Mouse",
	"Cooled-Dispenser", "Cooling-Display", "Dehumidifier", "Desktop-PC",
	"Digital-Oscilloscope", "Dishwasher", "Drone", "Electric-Bicycle",
	"Electric-Guitar", "Electrocardiograph-Machine", "Electronic-Keyboard",
	"Exhaust-Fan", "Flashlight", "Flat-Panel-Monitor", "Flat-Panel-TV",
	"Floor-Fan", "Freezer", "Glucose-Meter", "HDD", "Hair-Dryer",
	"Headphone", "LED-Bulb", "Laptop", "Microwave", "Music-Player",
	"Neon-Sign", "Network-Switch", "Non-Cooled-Dispenser", "Oven",
	"PCB", "Patient-Monitoring-System", "Photovoltaic-Panel", "PlayStation-5",
	"Power-Adapter", "Printer", "Projector", "Pulse-Oximeter",
	"Range-Hood", "Refrigerator", "Rotary-Mower", "Router", "SSD",
	"Server", "Smart-Watch", "Smartphone", "Smoke-Detector",
	"Soldering-Iron", "Speaker", "Stove", "Straight-Tube-Fluorescent-Lamp",
	"Street-Lamp", "TV-Remote-Control", "Table-Lamp", "Tablet",
	"Telephone-Set", "Toaster", "Tumble-Dryer", "USB-Flash-Drive",
	"Vacuum-Cleaner", "Washing-Machine", "Xbox-Series-X",
}

// toPriceCategory maps detector labels to the price model's categories.
var toPriceCategory = map[string]string{
	// Computing devices
	"Computer-Keyboard":   "Keyboard",
	"Electronic-Keyboard": "Keyboard",
	"Computer-Mouse":      "Mouse",
	"Desktop-PC":          "Komponen CPU",
	"Server":              "Komponen CPU",
	"PCB":                 "Komponen CPU",
	"HDD":                 "Hardisk",
	"SSD":                 "Hardisk",
	"USB-Flash-Drive":     "Flashdisk",
	"Laptop":              "Laptop",

	// Display devices
	"Flat-Panel-Monitor":        "Monitor",
	"CRT-Monitor":               "Monitor",
	"Digital-Oscilloscope":      "Monitor",
	"Patient-Monitoring-System": "Monitor",
	"Projector":                 "Monitor",
	"Flat-Panel-TV":             "TV",
	"CRT-TV":                    "TV",
	"TV-Remote-Control":         "Remot",

	// Mobile devices
	"Smartphone":    "Handphone",
	"Bar-Phone":     "Handphone",
	"Smart-Watch":   "Jam Tangan",
	"Tablet":        "Handphone",
	"Camera":        "Camera",
	"PlayStation-5": "PS2",
	"Xbox-Series-X": "PS2",

	// Audio devices
	"Speaker":         "Speaker",
	"Headphone":       "Speaker",
	"Music-Player":    "Speaker",
	"Electric-Guitar": "Speaker",

	// Power devices
	"Power-Adapter": "Adaptor /Kilo",
	"Battery":       "Baterai Laptop",

	// Kitchen devices
	"Microwave":      "Microwave",
	"Coffee-Machine": "Oven",
	"Oven":           "Oven",
	"Stove":          "Kompor Listrik",
	"Toaster":        "Oven",

	// Cooling devices
	"Refrigerator":         "Komponen Kulkas",
	"Freezer":              "Komponen Kulkas",
	"Cooled-Dispenser":     "Komponen Kulkas",
	"Non-Cooled-Dispenser": "Komponen Kulkas",
	"Cooling-Display":      "Komponen Kulkas",

	// Home devices
	"Clothes-Iron":    "Seterika",
	"Boiler":          "Kompor Listrik",
	"Hair-Dryer":      "Hair Dryer",
	"Rotary-Mower":    "Kipas",
	"Soldering-Iron":  "Solder",
	"Vacuum-Cleaner":  "Vacum Cleaner",
	"Washing-Machine": "Mesin Cuci",
	"Dishwasher":      "Mesin Cuci",
	"Tumble-Dryer":    "Mesin Cuci",

	// Air control
	"Ceiling-Fan":     "Kipas",
	"Floor-Fan":       "Kipas",
	"Exhaust-Fan":     "Kipas",
	"Range-Hood":      "Kipas",
	"Air-Conditioner": "AC",
	"Dehumidifier":    "AC",

	// Office equipment
	"Printer":    "Printer",
	"Calculator": "Alat Tes Vol",

	// Networking
	"Router":         "Router",
	"Network-Switch": "Router",

	// Lighting
	"LED-Bulb":                       "Lampu",
	"Table-Lamp":                     "Lampu",
	"Straight-Tube-Fluorescent-Lamp": "Lampu",
	"Compact-Fluorescent-Lamps":      "Lampu",
	"Christmas-Lights":               "Lampu",
	"Neon-Sign":                      "Neon Box",
	"Street-Lamp":                    "Lampu",

	// Health devices
	"Blood-Pressure-Monitor":     "Alat Tensi",
	"Electrocardiograph-Machine": "Monitor",
	"Glucose-Meter":              "Alat Tes Vol",
	"Pulse-Oximeter":             "Alat Tes Vol",

	// Vehicle & others
	"Drone":              "Kipas",
	"Electric-Bicycle":   "Aki Motor",
	"Photovoltaic-Panel": "Panel Surya",
	"Telephone-Set":      "Telefon",
	"Flashlight":         "Senter",
	"Smoke-Detector":     "Monitor",
}

// supported is the set of categories the price regression service accepts.
var supported = map[string]struct{}{
	"AC": {}, "Adaptor /Kilo": {}, "Aki Motor": {}, "Alat Tensi": {},
	"Alat Tes Vol": {}, "Baterai Laptop": {}, "Camera": {}, "CPU Intel": {},
	"Flashdisk": {}, "Hair Dryer": {}, "Handphone": {}, "Hardisk": {},
	"Jam Tangan": {}, "Keyboard": {}, "Kipas": {}, "Komponen CPU": {},
	"Komponen Kulkas": {}, "Kompor Listrik": {}, "Lampu": {}, "Laptop": {},
	"Mesin Cuci": {}, "Microwave": {}, "Monitor": {}, "Mouse": {},
	"Neon Box": {}, "Oven": {}, "Panel Surya": {}, "Printer": {}, "PS2": {},
	"Remot": {}, "Router": {}, "Senter": {}, "Seterika": {}, "Solder": {},
	"Speaker": {}, "Telefon": {}, "TV": {}, "Vacum Cleaner": {},
}

// Map returns the canonical price category for a detector label. Unmapped
// labels pass through unchanged; a miss is a defined path, not an error.
func Map(nativeLabel string) string {
	if mapped, ok := toPriceCategory[nativeLabel]; ok {
		return mapped
	}
	return nativeLabel
}

// IsSupported reports whether the price regression service accepts category.
func IsSupported(category string) bool {
	_, ok := supported[category]
	return ok
}

// SupportedCategories returns the supported price categories in sorted order.
func SupportedCategories() []string {
	out := make([]string, 0, len(supported))
	for c := range supported {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// baseRisk holds per-category base risk levels; categories not listed
// default to 3.
var baseRisk = map[string]int{
	"TV":              4,
	"Monitor":         4,
	"Refrigerator":    5,
	"Air-Conditioner": 5,
	"Smartphone":      4,
	"Laptop":          4,
	"Desktop-PC":      3,
	"Printer":         3,
	"Keyboard":        2,
	"Mouse":           2,
}

// RiskLevel computes the handling risk for a category in [1, 5]. The static
// base risk is raised one level when the detector confidence falls below
// lowConfidenceThreshold, capped at 5.
func RiskLevel(category string, confidence, lowConfidenceThreshold float64) int {
	risk, ok := baseRisk[category]
	if !ok {
		risk = 3
	}
	if confidence < lowConfidenceThreshold {
		risk = min(5, risk+1)
	}
	return risk
}

package seed

import "github.com/ukydev/lifelink/internal/models"

// Sample records around lower Manhattan, where the simulator also starts.
var (
	cityGeneral = models.NewPoint(40.730610, -73.935242)
	stMary      = models.NewPoint(40.735610, -73.945242)
	eastVillage = models.NewPoint(40.725610, -73.925242)
)

const doctorEmail = "doctor@test.com"

func sampleUsers() []models.User {
	return []models.User{
		{Email: "patient@test.com", Name: "John Doe", Role: models.RolePatient, BloodType: "O+", Age: 28},
		{Email: doctorEmail, Name: "Dr. Sarah James", Role: models.RoleDoctor},
		{Email: "hospital@test.com", Name: "City Hospital Admin", Role: models.RoleHospital},
	}
}

func sampleDoctors() []models.Doctor {
	return []models.Doctor{
		{
			Name:            "Dr. Sarah James",
			Specialty:       "Cardiologist",
			Category:        "cardio",
			Rating:          4.9,
			Available:       true,
			ConsultationFee: 50,
			Location:        point(cityGeneral),
			Experience:      15,
			Qualifications:  []string{"MD", "FACC"},
		},
		{
			Name:            "Dr. Michael Chen",
			Specialty:       "Dermatologist",
			Category:        "skin",
			Rating:          4.8,
			Available:       true,
			ConsultationFee: 45,
			Location:        point(stMary),
			Experience:      10,
		},
		{
			Name:            "Dr. Emily Williams",
			Specialty:       "Neurologist",
			Category:        "neurology",
			Rating:          4.9,
			Available:       false,
			ConsultationFee: 60,
			Location:        point(eastVillage),
			Experience:      20,
		},
	}
}

func sampleHospitals() []models.Hospital {
	return []models.Hospital{
		{
			Name:      "City General Hospital",
			Location:  point(cityGeneral),
			Rating:    4.5,
			Beds:      250,
			Emergency: true,
			BloodBank: []models.BloodUnit{
				{Type: "O+", Units: 24},
				{Type: "A-", Units: 3},
				{Type: "B+", Units: 15},
			},
			Facilities: []string{"ICU", "Emergency", "Surgery", "Lab"},
		},
		{
			Name:       "St. Mary Medical Center",
			Location:   point(stMary),
			Rating:     4.7,
			Beds:       180,
			Emergency:  true,
			Facilities: []string{"Emergency", "Cardiology", "Pediatrics"},
		},
	}
}

func sampleMedicines() []models.Medicine {
	return []models.Medicine{
		{
			Name:     "Paracetamol 500mg",
			Type:     "Tablet",
			Category: "Pain Relief",
			Dosage:   "1 tab / 6 hrs",
			Prices: []models.PharmacyPrice{
				{Shop: "MediCare Plus", Price: 5, Available: true},
				{Shop: "Life Pharma", Price: 5.5, Available: true},
			},
			Warnings: []string{"Do not exceed 4g per day", "Avoid with alcohol"},
		},
		{
			Name:     "Amoxicillin 500mg",
			Type:     "Capsule",
			Category: "Antibiotics",
			Dosage:   "1 cap / 8 hrs",
			Prices: []models.PharmacyPrice{
				{Shop: "MediCare Plus", Price: 12.5, Available: true},
				{Shop: "Life Pharma", Price: 14.2, Available: true},
			},
			Warnings: []string{"Complete the full course"},
		},
		{
			Name:     "Vitamin D3",
			Type:     "Tablet",
			Category: "Supplements",
			Dosage:   "1 tab / day",
			Prices: []models.PharmacyPrice{
				{Shop: "HealthMart", Price: 12, Available: true},
			},
		},
	}
}

type ambulanceSeed struct {
	Plate    string
	Hospital int // index into sampleHospitals
	Location models.GeoPoint
}

// The first unit is driven by the sample doctor.
func sampleAmbulances() []ambulanceSeed {
	return []ambulanceSeed{
		{Plate: "AMB-9922", Hospital: 0, Location: cityGeneral},
		{Plate: "AMB-5544", Hospital: 1, Location: stMary},
	}
}

func point(p models.GeoPoint) *models.GeoPoint {
	p.Coordinates = append([]float64(nil), p.Coordinates...)
	return &p
}

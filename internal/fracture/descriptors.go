// Package fracture holds the display metadata for fracture types.
//
// The sub-type shown to the user is picked at random whenever the binary
// classifier reports a fracture. It is presentation only, not a diagnosis.
package fracture

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

type Descriptor struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Severity        string `json:"severity"`
	CommonLocations string `json:"common_locations"`
}

// types fixes the draw order so a seeded source gives repeatable picks.
var types = []string{
	"Avulsion fracture",
	"Comminuted fracture",
	"Fracture Dislocation",
	"Greenstick fracture",
	"Hairline Fracture",
	"Impacted fracture",
	"Longitudinal fracture",
	"Oblique fracture",
	"Spiral fracture",
	"Transverse fracture",
	"Segmental fracture",
}

var descriptors = map[string]Descriptor{
	"Avulsion fracture": {
		Name:            "Avulsion Fracture",
		Description:     "An injury where a small piece of bone attached to a tendon or ligament gets pulled away from the main part of the bone.",
		Severity:        "Moderate",
		CommonLocations: "Ankle, Hip, Elbow, Knee",
	},
	"Comminuted fracture": {
		Name:            "Comminuted Fracture",
		Description:     "A severe break where the bone shatters into three or more pieces.",
		Severity:        "Severe",
		CommonLocations: "Often results from high-impact trauma like car accidents.",
	},
	"Fracture Dislocation": {
		Name:            "Fracture Dislocation",
		Description:     "A complex injury where a joint becomes dislocated and one of the bones of the joint also has a fracture.",
		Severity:        "Severe",
		CommonLocations: "Ankle, Wrist, Elbow, Shoulder",
	},
	"Greenstick fracture": {
		Name:            "Greenstick Fracture",
		Description:     "An incomplete fracture where the bone is bent. This type occurs most often in children.",
		Severity:        "Mild to Moderate",
		CommonLocations: "Common in children - Forearm bones",
	},
	"Hairline Fracture": {
		Name:            "Hairline Fracture (Stress Fracture)",
		Description:     "A tiny crack in a bone that is often caused by repetitive force or overuse.",
		Severity:        "Mild",
		CommonLocations: "Foot, Ankle, Tibia (shin bone)",
	},
	"Impacted fracture": {
		Name:            "Impacted Fracture",
		Description:     "A break where the broken ends of the bone are jammed together by the force of the injury.",
		Severity:        "Moderate to Severe",
		CommonLocations: "Often seen in falls from a height; affects long bones.",
	},
	"Longitudinal fracture": {
		Name:            "Longitudinal Fracture",
		Description:     "A fracture that follows the length of the bone.",
		Severity:        "Moderate",
		CommonLocations: "Long bones like the tibia or femur.",
	},
	"Oblique fracture": {
		Name:            "Oblique Fracture",
		Description:     "A fracture where the break has a curved or sloped pattern.",
		Severity:        "Moderate to Severe",
		CommonLocations: "Long bones",
	},
	"Spiral fracture": {
		Name:            "Spiral Fracture",
		Description:     "A type of fracture caused by a twisting force, creating a spiral-like break line.",
		Severity:        "Moderate to Severe",
		CommonLocations: "Long bones, commonly in sports injuries.",
	},
	"Transverse fracture": {
		Name:            "Transverse Fracture",
		Description:     "A fracture where the break is a straight line across the bone.",
		Severity:        "Moderate",
		CommonLocations: "Long bones",
	},
	"Segmental fracture": {
		Name:            "Segmental Fracture",
		Description:     "A severe injury where a bone is fractured in two separate places, leaving a \"floating\" segment of bone.",
		Severity:        "Severe",
		CommonLocations: "Long bones, particularly the tibia.",
	},
}

// Types returns the table keys in draw order.
func Types() []string {
	return append([]string(nil), types...)
}

func Lookup(key string) (Descriptor, bool) {
	d, ok := descriptors[key]
	return d, ok
}

// IsFractured reports whether a classifier label counts as a positive result.
func IsFractured(label string) bool {
	return strings.Contains(strings.ToLower(label), "fractured")
}

// Describer picks a display sub-type for positive labels.
type Describer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewDescriber uses src for the random pick. A nil src seeds from the clock.
func NewDescriber(src rand.Source) *Describer {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Describer{rnd: rand.New(src)}
}

// Describe returns nil for labels without "fractured", otherwise a
// uniformly chosen descriptor from the table.
func (d *Describer) Describe(label string) *Descriptor {
	if !IsFractured(label) {
		return nil
	}

	d.mu.Lock()
	key := types[d.rnd.Intn(len(types))]
	d.mu.Unlock()

	desc := descriptors[key]
	return &desc
}

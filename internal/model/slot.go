package model

import "time"

// Location is a WGS84 coordinate pair.
type Location struct {
    Lat  float64 `json:"lat"`
    Long float64 `json:"long"`
}

// Slot describes a physical parking location made of a fixed number of
// bays.  Bays[i] is true while bay i can be reserved.  AvailableCount must
// always equal the number of true entries in Bays; only the reservation
// engine mutates either field.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name.
//  Address        – free-form street address.
//  Location       – coordinates used for directions.
//  Bays           – ordered availability flags, one per bay.
//  AvailableCount – number of available bays.
//  CreatedAt      – creation timestamp.
//  Version        – optimistic concurrency token managed by the store.
type Slot struct {
    ID             string    `json:"id"`              // slots.id
    Name           string    `json:"name"`            // slots.name
    Address        string    `json:"address"`         // slots.address
    Location       Location  `json:"location"`        // slots.latitude, slots.longitude
    Bays           []bool    `json:"bays"`            // slots.bays (JSON array)
    AvailableCount int       `json:"available_count"` // slots.available_count
    CreatedAt      time.Time `json:"created_at"`      // slots.created_at
    Version        uint64    `json:"-"`               // slots.version
}

// NewSlot returns a slot with bayCount bays, all available.
func NewSlot(id, name, address string, loc Location, bayCount int) Slot {
    bays := make([]bool, bayCount)
    for i := range bays {
        bays[i] = true
    }
    return Slot{
        ID:             id,
        Name:           name,
        Address:        address,
        Location:       loc,
        Bays:           bays,
        AvailableCount: bayCount,
        CreatedAt:      time.Now().UTC(),
    }
}

// CountAvailable returns the number of bays currently flagged available.
func (s Slot) CountAvailable() int {
    n := 0
    for _, ok := range s.Bays {
        if ok {
            n++
        }
    }
    return n
}

// Consistent reports whether AvailableCount matches the bay flags.
func (s Slot) Consistent() bool { return s.AvailableCount == s.CountAvailable() }

// HasBay reports whether i addresses a bay of this slot.
func (s Slot) HasBay(i int) bool { return i >= 0 && i < len(s.Bays) }

// Clone returns a copy that does not share the Bays backing array.
func (s Slot) Clone() Slot {
    out := s
    out.Bays = append([]bool(nil), s.Bays...)
    return out
}

package core

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted metadata. Field order is part of the
// on-disk format; append new fields at the end and bump storage.FormatVersion.
var (
	IDMUS           = idMUS{}
	AvailabilityMUS = availabilityMUS{}
	RecordMUS       = recordMUS{}
	StringSliceMUS  = stringSliceMUS{}
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

type availabilityMUS struct{}

func (s availabilityMUS) Marshal(v Availability, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s availabilityMUS) Unmarshal(bs []byte) (v Availability, n int, err error) {
	str, n, err := ord.String.Unmarshal(bs)
	return Availability(str), n, err
}

func (s availabilityMUS) Size(v Availability) (size int) {
	return ord.String.Size(string(v))
}

type stringSliceMUS struct{}

func (s stringSliceMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, e := range v {
		n += ord.String.Marshal(e, bs[n:])
	}
	return
}

func (s stringSliceMUS) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return
	}
	// every element occupies at least its one-byte length prefix
	if length < 0 || length > len(bs)-n {
		err = fmt.Errorf("%w: list length %d exceeds remaining %d bytes", ErrArtifact, length, len(bs)-n)
		return
	}
	v = make([]string, length)
	var n1 int
	for i := range v {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return
}

func (s stringSliceMUS) Size(v []string) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, e := range v {
		size += ord.String.Size(e)
	}
	return
}

type recordMUS struct{}

func (s recordMUS) Marshal(v Record, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += StringSliceMUS.Marshal(v.Skills, bs[n:])
	n += varint.Int.Marshal(v.ExperienceYears, bs[n:])
	n += StringSliceMUS.Marshal(v.Projects, bs[n:])
	n += AvailabilityMUS.Marshal(v.Availability, bs[n:])
	return
}

func (s recordMUS) Unmarshal(bs []byte) (v Record, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Skills, n1, err = StringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ExperienceYears, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Projects, n1, err = StringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Availability, n1, err = AvailabilityMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s recordMUS) Size(v Record) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Name)
	size += StringSliceMUS.Size(v.Skills)
	size += varint.Int.Size(v.ExperienceYears)
	size += StringSliceMUS.Size(v.Projects)
	return size + AvailabilityMUS.Size(v.Availability)
}

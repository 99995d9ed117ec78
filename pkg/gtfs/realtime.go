package gtfs

import (
	"sort"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/busline/busline/pkg/ctdf"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

const realtimeVersion = "2.0"

var occupancyStatus = map[ctdf.OccupancyLevel]gtfs.VehiclePosition_OccupancyStatus{
	ctdf.OccupancyLevelLow:      gtfs.VehiclePosition_MANY_SEATS_AVAILABLE,
	ctdf.OccupancyLevelMedium:   gtfs.VehiclePosition_FEW_SEATS_AVAILABLE,
	ctdf.OccupancyLevelHigh:     gtfs.VehiclePosition_STANDING_ROOM_ONLY,
	ctdf.OccupancyLevelVeryHigh: gtfs.VehiclePosition_FULL,
}

// BuildVehiclePositionsFeed creates a full dataset GTFS-RT message with one entity per vehicle,
// using the newest sample of each
func BuildVehiclePositionsFeed(positions []*ctdf.VehiclePosition, now time.Time) *gtfs.FeedMessage {
	latest := map[string]*ctdf.VehiclePosition{}
	for _, position := range positions {
		if position == nil || position.VehicleRef == "" {
			continue
		}

		if existing, exists := latest[position.VehicleRef]; !exists || position.Timestamp.After(existing.Timestamp) {
			latest[position.VehicleRef] = position
		}
	}

	vehicleRefs := make([]string, 0, len(latest))
	for vehicleRef := range latest {
		vehicleRefs = append(vehicleRefs, vehicleRef)
	}
	sort.Strings(vehicleRefs)

	message := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(realtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(vehicleRefs)),
	}

	for _, vehicleRef := range vehicleRefs {
		message.Entity = append(message.Entity, &gtfs.FeedEntity{
			Id:      proto.String(vehicleRef),
			Vehicle: vehiclePosition(latest[vehicleRef]),
		})
	}

	return message
}

func vehiclePosition(position *ctdf.VehiclePosition) *gtfs.VehiclePosition {
	vehicle := &gtfs.VehiclePosition{
		Trip: &gtfs.TripDescriptor{
			RouteId: proto.String(position.RouteRef),
		},
		Vehicle: &gtfs.VehicleDescriptor{
			Id: proto.String(position.VehicleRef),
		},
		Position: &gtfs.Position{
			Latitude:  proto.Float32(float32(position.Location.Latitude())),
			Longitude: proto.Float32(float32(position.Location.Longitude())),
			Bearing:   proto.Float32(float32(position.Heading)),
		},
		Timestamp: proto.Uint64(uint64(position.Timestamp.Unix())),
	}

	// GTFS-RT speed is metres per second
	if position.Speed != nil && *position.Speed >= 0 {
		vehicle.Position.Speed = proto.Float32(float32(*position.Speed / 3.6))
	}

	if position.NextStopRef != "" {
		vehicle.StopId = proto.String(position.NextStopRef)
		vehicle.CurrentStatus = gtfs.VehiclePosition_IN_TRANSIT_TO.Enum()
	}

	if status, exists := occupancyStatus[position.OccupancyLevel]; exists {
		vehicle.OccupancyStatus = status.Enum()
	}

	return vehicle
}

func MarshalFeed(message *gtfs.FeedMessage) ([]byte, error) {
	return proto.Marshal(message)
}

func MarshalFeedJSON(message *gtfs.FeedMessage) ([]byte, error) {
	return protojson.MarshalOptions{UseProtoNames: true}.Marshal(message)
}

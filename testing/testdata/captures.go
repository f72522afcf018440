package testdata

// Single fixes as posted by device clients.
// Unavailable speed and heading are reported as -1.

var Capture_iOS_Stationary = `{
  "type": "Feature",
  "geometry": {
    "type": "Point",
    "coordinates": [-93.2554931640625, 44.98896789550781]
  },
  "properties": {
    "Accuracy": 23.13,
    "Activity": "Unknown",
    "BatteryLevel": 0.95,
    "Elevation": 328.43,
    "Heading": -1,
    "Name": "Rye16",
    "Speed": -1,
    "Time": "2024-12-23T15:31:56.728Z",
    "UnixTime": 1734967916
  }
}
`

var Capture_Android_Stationary = `{
  "type": "Feature",
  "bbox": [-113.4730765, 47.1787276, -113.4730765, 47.1787276],
  "geometry": {
    "type": "Point",
    "coordinates": [-113.4730765, 47.1787276]
  },
  "properties": {
    "Accuracy": 3.9,
    "Activity": "Stationary",
    "BatteryLevel": 1,
    "Elevation": 1258.4,
    "Heading": -1,
    "Name": "ranga-moto-act3",
    "Pressure": null,
    "Speed": 0.06,
    "Time": "2024-12-23T15:05:34.710Z",
    "UnixTime": 1734966334,
    "speed_accuracy": 3.2,
    "vAccuracy": 1
  }
}
`

// WalkNDJSON is a short walk north as newline-delimited flat fixes, 2s apart.
const WalkNDJSON = "fixes/walk.ndjson"

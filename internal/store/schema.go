package store

// SQL statements for the readings table and its change-notification plumbing.

// NotifyChannel is the channel the store broadcasts on whenever the readings
// table changes. The payload carries the operation name but listeners treat
// it as an opaque wake-up signal.
const NotifyChannel = "sensor_readings_changed"

const (
	// ReadingsTableSQL creates the sensor_readings table.
	ReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_readings (
			id               BIGSERIAL PRIMARY KEY,
			sensor_id        INT NOT NULL,
			temperature      DOUBLE PRECISION NOT NULL,
			wind_speed       DOUBLE PRECISION NOT NULL,
			humidity         DOUBLE PRECISION NOT NULL,
			co2              DOUBLE PRECISION NOT NULL,
			reading_time_utc TIMESTAMPTZ NOT NULL
		)
	`

	// ReadingsSensorIndexSQL indexes readings by sensor for per-sensor queries.
	ReadingsSensorIndexSQL = `
		CREATE INDEX IF NOT EXISTS idx_sensor_readings_sensor_id
		ON sensor_readings (sensor_id)
	`

	// NotifyFunctionSQL creates the trigger function that broadcasts table
	// changes over NotifyChannel.
	NotifyFunctionSQL = `
		CREATE OR REPLACE FUNCTION sensor_readings_notify() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('sensor_readings_changed', TG_OP);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql
	`

	// NotifyTriggerSQL fires the notify function once per mutating statement.
	NotifyTriggerSQL = `
		CREATE OR REPLACE TRIGGER sensor_readings_changed
		AFTER INSERT OR UPDATE OR DELETE ON sensor_readings
		FOR EACH STATEMENT EXECUTE FUNCTION sensor_readings_notify()
	`
)

// AllDDL returns every schema statement in application order.
func AllDDL() []string {
	return []string{
		ReadingsTableSQL,
		ReadingsSensorIndexSQL,
		NotifyFunctionSQL,
		NotifyTriggerSQL,
	}
}

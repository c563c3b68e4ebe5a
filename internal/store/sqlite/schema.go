package sqlite

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clients (
    full_name        TEXT PRIMARY KEY,
    email_address    TEXT,
    phone_mobile     TEXT,
    phone_other      TEXT,
    address          TEXT,
    address_2        TEXT,
    city             TEXT,
    state_province   TEXT,
    zip_postal_code  TEXT,
    private_notes    TEXT,
    joist_client_id  INTEGER,
    join_date        TEXT,
    source           TEXT NOT NULL DEFAULT 'export',
    ingested_date    TEXT
)`,
	`CREATE TABLE IF NOT EXISTS dup_name_clients (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    full_name        TEXT NOT NULL,
    email_address    TEXT,
    phone_mobile     TEXT,
    phone_other      TEXT,
    address          TEXT,
    address_2        TEXT,
    city             TEXT,
    state_province   TEXT,
    zip_postal_code  TEXT,
    private_notes    TEXT,
    joist_client_id  INTEGER,
    ingested_date    TEXT
)`,
	`CREATE TABLE IF NOT EXISTS estimates (
    estimate_number  TEXT PRIMARY KEY,
    full_name        TEXT NOT NULL REFERENCES clients (full_name) ON UPDATE CASCADE,
    subtotal         TEXT,
    tax              TEXT,
    total            TEXT,
    date_issued      TEXT,
    date_created     TEXT,
    ingested_date    TEXT
)`,
	`CREATE INDEX IF NOT EXISTS estimates_full_name_idx ON estimates (full_name)`,
	`CREATE TABLE IF NOT EXISTS invoices (
    invoice_number                 TEXT PRIMARY KEY,
    full_name                      TEXT NOT NULL REFERENCES clients (full_name) ON UPDATE CASCADE,
    subtotal                       TEXT,
    tax                            TEXT,
    total                          TEXT,
    date_issued                    TEXT,
    date_created                   TEXT,
    payment_received_less_refunds  TEXT,
    ingested_date                  TEXT
)`,
	`CREATE INDEX IF NOT EXISTS invoices_full_name_idx ON invoices (full_name)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
    run_id            TEXT PRIMARY KEY,
    year              INTEGER NOT NULL,
    month             INTEGER NOT NULL,
    ingestion_date    TEXT NOT NULL,
    started_at        TEXT NOT NULL,
    finished_at       TEXT,
    status            TEXT NOT NULL,
    clients_rows      INTEGER NOT NULL DEFAULT 0,
    estimates_rows    INTEGER NOT NULL DEFAULT 0,
    invoices_rows     INTEGER NOT NULL DEFAULT 0,
    source_checksums  TEXT NOT NULL DEFAULT '{}'
)`,
}

const countTablesSQL = `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN (?, ?, ?, ?, ?)`

var dropStatements = []string{
	`DROP TABLE IF EXISTS invoices`,
	`DROP TABLE IF EXISTS estimates`,
	`DROP TABLE IF EXISTS dup_name_clients`,
	`DROP TABLE IF EXISTS ingest_runs`,
	`DROP TABLE IF EXISTS clients`,
}

const clientColumns = `full_name, email_address, phone_mobile, phone_other, address, address_2,
    city, state_province, zip_postal_code, private_notes, joist_client_id`

const upsertClientSQL = `
INSERT INTO clients (` + clientColumns + `, source, ingested_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (full_name) DO UPDATE SET
    email_address   = excluded.email_address,
    phone_mobile    = excluded.phone_mobile,
    phone_other     = excluded.phone_other,
    address         = excluded.address,
    address_2       = excluded.address_2,
    city            = excluded.city,
    state_province  = excluded.state_province,
    zip_postal_code = excluded.zip_postal_code,
    private_notes   = excluded.private_notes,
    joist_client_id = excluded.joist_client_id,
    source          = excluded.source,
    ingested_date   = excluded.ingested_date`

const ensureClientSQL = `
INSERT INTO clients (` + clientColumns + `, source, ingested_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (full_name) DO NOTHING`

const deleteDupSQL = `DELETE FROM dup_name_clients WHERE full_name = ?`

const insertDupSQL = `
INSERT INTO dup_name_clients (` + clientColumns + `, ingested_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertEstimateSQL = `
INSERT INTO estimates (estimate_number, full_name, subtotal, tax, total, date_issued, date_created, ingested_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (estimate_number) DO UPDATE SET
    full_name     = excluded.full_name,
    subtotal      = excluded.subtotal,
    tax           = excluded.tax,
    total         = excluded.total,
    date_issued   = excluded.date_issued,
    date_created  = excluded.date_created,
    ingested_date = excluded.ingested_date`

const upsertInvoiceSQL = `
INSERT INTO invoices (invoice_number, full_name, subtotal, tax, total, date_issued, date_created,
    payment_received_less_refunds, ingested_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (invoice_number) DO UPDATE SET
    full_name                     = excluded.full_name,
    subtotal                      = excluded.subtotal,
    tax                           = excluded.tax,
    total                         = excluded.total,
    date_issued                   = excluded.date_issued,
    date_created                  = excluded.date_created,
    payment_received_less_refunds = excluded.payment_received_less_refunds,
    ingested_date                 = excluded.ingested_date`

const refreshJoinDateSQL = `
UPDATE clients
SET join_date = (
    SELECT MIN(COALESCE(e.date_created, e.date_issued)) FROM estimates e WHERE e.full_name = clients.full_name
)
WHERE full_name = ?
  AND EXISTS (
    SELECT 1 FROM estimates e
    WHERE e.full_name = clients.full_name
      AND COALESCE(e.date_created, e.date_issued) IS NOT NULL
      AND (clients.join_date IS NULL OR COALESCE(e.date_created, e.date_issued) < clients.join_date)
  )`

const recordRunSQL = `
INSERT INTO ingest_runs (run_id, year, month, ingestion_date, started_at, finished_at, status,
    clients_rows, estimates_rows, invoices_rows, source_checksums)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
    finished_at      = excluded.finished_at,
    status           = excluded.status,
    clients_rows     = excluded.clients_rows,
    estimates_rows   = excluded.estimates_rows,
    invoices_rows    = excluded.invoices_rows,
    source_checksums = excluded.source_checksums`

const clientsActivitySQL = `
SELECT ` + clientColumns + `, join_date, source, ingested_date,
    (SELECT count(*) FROM estimates e WHERE e.full_name = c.full_name),
    (SELECT count(*) FROM invoices i WHERE i.full_name = c.full_name)
FROM clients c
ORDER BY full_name`

const runsSQL = `
SELECT run_id, year, month, ingestion_date, started_at, finished_at, status,
    clients_rows, estimates_rows, invoices_rows, source_checksums
FROM ingest_runs
ORDER BY started_at DESC`

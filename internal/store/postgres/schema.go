package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS clients (
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
    joist_client_id  BIGINT,
    join_date        DATE,
    source           TEXT NOT NULL DEFAULT 'export',
    ingested_date    DATE
);

CREATE TABLE IF NOT EXISTS dup_name_clients (
    id               BIGSERIAL PRIMARY KEY,
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
    joist_client_id  BIGINT,
    ingested_date    DATE
);

CREATE TABLE IF NOT EXISTS estimates (
    estimate_number  TEXT PRIMARY KEY,
    full_name        TEXT NOT NULL REFERENCES clients (full_name) ON UPDATE CASCADE,
    subtotal         NUMERIC(14,2),
    tax              NUMERIC(14,2),
    total            NUMERIC(14,2),
    date_issued      DATE,
    date_created     DATE,
    ingested_date    DATE
);
CREATE INDEX IF NOT EXISTS estimates_full_name_idx ON estimates (full_name);

CREATE TABLE IF NOT EXISTS invoices (
    invoice_number                 TEXT PRIMARY KEY,
    full_name                      TEXT NOT NULL REFERENCES clients (full_name) ON UPDATE CASCADE,
    subtotal                       NUMERIC(14,2),
    tax                            NUMERIC(14,2),
    total                          NUMERIC(14,2),
    date_issued                    DATE,
    date_created                   DATE,
    payment_received_less_refunds  NUMERIC(14,2),
    ingested_date                  DATE
);
CREATE INDEX IF NOT EXISTS invoices_full_name_idx ON invoices (full_name);

CREATE TABLE IF NOT EXISTS ingest_runs (
    run_id            UUID PRIMARY KEY,
    year              INTEGER NOT NULL,
    month             INTEGER NOT NULL,
    ingestion_date    DATE NOT NULL,
    started_at        TIMESTAMPTZ NOT NULL,
    finished_at       TIMESTAMPTZ,
    status            TEXT NOT NULL,
    clients_rows      INTEGER NOT NULL DEFAULT 0,
    estimates_rows    INTEGER NOT NULL DEFAULT 0,
    invoices_rows     INTEGER NOT NULL DEFAULT 0,
    source_checksums  JSONB NOT NULL DEFAULT '{}'::jsonb
);
`

const countTablesSQL = `
SELECT count(*) FROM pg_catalog.pg_tables
WHERE schemaname = current_schema() AND tablename = ANY($1)`

const dropSQL = `DROP TABLE IF EXISTS invoices, estimates, dup_name_clients, ingest_runs, clients CASCADE`

const clientColumns = `full_name, email_address, phone_mobile, phone_other, address, address_2,
    city, state_province, zip_postal_code, private_notes, joist_client_id`

const upsertClientSQL = `
INSERT INTO clients (` + clientColumns + `, source, ingested_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (full_name) DO UPDATE SET
    email_address   = EXCLUDED.email_address,
    phone_mobile    = EXCLUDED.phone_mobile,
    phone_other     = EXCLUDED.phone_other,
    address         = EXCLUDED.address,
    address_2       = EXCLUDED.address_2,
    city            = EXCLUDED.city,
    state_province  = EXCLUDED.state_province,
    zip_postal_code = EXCLUDED.zip_postal_code,
    private_notes   = EXCLUDED.private_notes,
    joist_client_id = EXCLUDED.joist_client_id,
    source          = EXCLUDED.source,
    ingested_date   = EXCLUDED.ingested_date`

const ensureClientSQL = `
INSERT INTO clients (` + clientColumns + `, source, ingested_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (full_name) DO NOTHING`

const deleteDupsSQL = `DELETE FROM dup_name_clients WHERE full_name = ANY($1)`

const insertDupSQL = `
INSERT INTO dup_name_clients (` + clientColumns + `, ingested_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const upsertEstimateSQL = `
INSERT INTO estimates (estimate_number, full_name, subtotal, tax, total, date_issued, date_created, ingested_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (estimate_number) DO UPDATE SET
    full_name     = EXCLUDED.full_name,
    subtotal      = EXCLUDED.subtotal,
    tax           = EXCLUDED.tax,
    total         = EXCLUDED.total,
    date_issued   = EXCLUDED.date_issued,
    date_created  = EXCLUDED.date_created,
    ingested_date = EXCLUDED.ingested_date`

const upsertInvoiceSQL = `
INSERT INTO invoices (invoice_number, full_name, subtotal, tax, total, date_issued, date_created,
    payment_received_less_refunds, ingested_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (invoice_number) DO UPDATE SET
    full_name                     = EXCLUDED.full_name,
    subtotal                      = EXCLUDED.subtotal,
    tax                           = EXCLUDED.tax,
    total                         = EXCLUDED.total,
    date_issued                   = EXCLUDED.date_issued,
    date_created                  = EXCLUDED.date_created,
    payment_received_less_refunds = EXCLUDED.payment_received_less_refunds,
    ingested_date                 = EXCLUDED.ingested_date`

const refreshJoinDatesSQL = `
UPDATE clients c
SET join_date = m.first_date
FROM (
    SELECT full_name, MIN(COALESCE(date_created, date_issued)) AS first_date
    FROM estimates
    WHERE full_name = ANY($1)
    GROUP BY full_name
) m
WHERE c.full_name = m.full_name
  AND m.first_date IS NOT NULL
  AND (c.join_date IS NULL OR m.first_date < c.join_date)`

const recordRunSQL = `
INSERT INTO ingest_runs (run_id, year, month, ingestion_date, started_at, finished_at, status,
    clients_rows, estimates_rows, invoices_rows, source_checksums)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (run_id) DO UPDATE SET
    finished_at      = EXCLUDED.finished_at,
    status           = EXCLUDED.status,
    clients_rows     = EXCLUDED.clients_rows,
    estimates_rows   = EXCLUDED.estimates_rows,
    invoices_rows    = EXCLUDED.invoices_rows,
    source_checksums = EXCLUDED.source_checksums`

const clientsActivitySQL = `
SELECT ` + clientColumns + `, c.join_date, c.source, c.ingested_date,
    (SELECT count(*) FROM estimates e WHERE e.full_name = c.full_name),
    (SELECT count(*) FROM invoices i WHERE i.full_name = c.full_name)
FROM clients c
ORDER BY c.full_name`

const runsSQL = `
SELECT run_id, year, month, ingestion_date, started_at, finished_at, status,
    clients_rows, estimates_rows, invoices_rows, source_checksums
FROM ingest_runs
ORDER BY started_at DESC`

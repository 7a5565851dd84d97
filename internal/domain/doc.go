// Package domain holds the records shared by the PMO Network services:
// accounts, profiles, jobs, applications, documents, conversations and
// activity events, together with their status enums and field validation.
//
// Nothing here touches storage or HTTP, so every other internal package may
// import it.
package domain

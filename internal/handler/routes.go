package handler

// APIV1Prefix is the base path of the admin API. The react-admin data provider points here.
const APIV1Prefix = "/api/v1"
